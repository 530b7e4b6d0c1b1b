package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://apis.roblox.com"

	submitTemplate = "%s/cloud/v2/universes/%d/places/%d/luau-execution-session-tasks"
	statusQuery    = "view=BASIC"

	maxBodyBytes   = 1 << 20
	maxBodyExcerpt = 512
)

var validate = validator.New()

// Client performs the two request shapes the orchestrator needs: submit a
// script and fetch the status of the resulting task. It keeps no state
// between calls beyond the shared HTTP client and circuit breaker.
type Client struct {
	base       string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient returns a Client for the given API base URL. An empty baseURL
// selects the production Open Cloud endpoint. apiKey authenticates status
// polls; submissions carry the credential of their SubmissionRequest.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cbs := gobreaker.Settings{
		Name:        "open-cloud",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return &Client{
		base:       strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cb:         gobreaker.NewCircuitBreaker(cbs),
	}
}

// Submit starts one execution task and returns the handle to poll it with.
// The handle is built from the resource path the server returns, never from
// the request identifiers.
func (c *Client) Submit(ctx context.Context, req SubmissionRequest) (JobHandle, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("invalid submission request: %w", err)
	}

	payload, err := json.Marshal(struct {
		Script string `json:"script"`
	}{Script: req.Script})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission body: %w", err)
	}

	endpoint := fmt.Sprintf(submitTemplate, c.base, req.UniverseID, req.PlaceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)

	body, err := c.do(httpReq, "submit")
	if err != nil {
		return "", err
	}

	var created struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &TransportError{Op: "submit", Body: excerpt(body), Err: err}
	}
	if created.Path == "" {
		return "", &TransportError{Op: "submit", Body: excerpt(body), Err: ErrMissingTaskPath}
	}
	return c.handleFromPath(created.Path), nil
}

// FetchStatus retrieves one status snapshot for the task behind handle. It
// never retries; retry policy belongs to the caller.
func (c *Client) FetchStatus(ctx context.Context, handle JobHandle) (JobStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, string(handle)+"?"+statusQuery, nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)

	body, err := c.do(httpReq, "fetch status")
	if err != nil {
		return JobStatus{}, err
	}

	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return JobStatus{}, &TransportError{Op: "fetch status", Body: excerpt(body), Err: err}
	}
	return status, nil
}

// do runs one round trip through the circuit breaker and normalizes every
// failure into a TransportError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	res, err := c.cb.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, &TransportError{Op: op, Status: resp.StatusCode, Body: excerpt(body)}
		}
		return body, nil
	})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		// breaker rejected the call before any request went out
		return nil, &TransportError{Op: op, Err: err}
	}
	return res.([]byte), nil
}

// handleFromPath joins the server-provided relative resource path to the
// API base. The path shape is otherwise opaque.
func (c *Client) handleFromPath(path string) JobHandle {
	p := strings.TrimLeft(path, "/")
	if !strings.HasPrefix(p, "cloud/") {
		p = "cloud/v2/" + p
	}
	return JobHandle(c.base + "/" + p)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		s = s[:maxBodyExcerpt] + "..."
	}
	return s
}
