package cloud_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andrej220/luauci/pkg/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() cloud.SubmissionRequest {
	return cloud.SubmissionRequest{
		Script:     "print('hello')",
		UniverseID: 42,
		PlaceID:    7,
		APIKey:     "secret",
	}
}

func TestSubmit(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody struct {
		Script string `json:"script"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path":  "universes/42/places/7/luau-execution-sessions/s1/tasks/t1",
			"state": "QUEUED",
		})
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	handle, err := client.Submit(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, "/cloud/v2/universes/42/places/7/luau-execution-session-tasks", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "print('hello')", gotBody.Script)
	assert.Equal(t,
		cloud.JobHandle(srv.URL+"/cloud/v2/universes/42/places/7/luau-execution-sessions/s1/tasks/t1"),
		handle)
}

func TestSubmitNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	_, err := client.Submit(context.Background(), validRequest())

	var te *cloud.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.Status)
	assert.Contains(t, te.Error(), "invalid api key")
}

func TestSubmitValidation(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		mutate func(*cloud.SubmissionRequest)
	}{
		{name: "empty script", mutate: func(r *cloud.SubmissionRequest) { r.Script = "" }},
		{name: "zero universe", mutate: func(r *cloud.SubmissionRequest) { r.UniverseID = 0 }},
		{name: "negative place", mutate: func(r *cloud.SubmissionRequest) { r.PlaceID = -1 }},
		{name: "missing key", mutate: func(r *cloud.SubmissionRequest) { r.APIKey = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			client := cloud.NewClient(srv.URL, "secret")
			_, err := client.Submit(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, 0, hits, "invalid requests must not reach the network")
		})
	}
}

func TestSubmitMissingTaskPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	_, err := client.Submit(context.Background(), validRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, cloud.ErrMissingTaskPath), "got %v", err)
}

func TestFetchStatus(t *testing.T) {
	var gotView, gotKey, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotView = r.URL.Query().Get("view")
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{
			"path": "universes/42/places/7/luau-execution-sessions/s1/tasks/t1",
			"state": "COMPLETE",
			"output": {"results": [{"allPass": true, "output": "12 passed"}]}
		}`))
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	status, err := client.FetchStatus(context.Background(), cloud.JobHandle(srv.URL+"/cloud/v2/tasks/t1"))

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "BASIC", gotView)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, cloud.StateComplete, status.State)
	require.NotNil(t, status.Output)
	require.Len(t, status.Output.Results, 1)
	assert.True(t, status.Output.Results[0].AllPass)
	assert.Equal(t, "12 passed", status.Output.Results[0].Output)
}

func TestFetchStatusFailedTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state": "FAILED", "error": {"code": "SCRIPT_ERROR", "message": "boom"}}`))
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	status, err := client.FetchStatus(context.Background(), cloud.JobHandle(srv.URL+"/cloud/v2/tasks/t1"))

	require.NoError(t, err)
	assert.Equal(t, cloud.StateFailed, status.State)
	require.NotNil(t, status.Error)
	assert.Equal(t, "boom", status.Error.Message)
}

func TestFetchStatusNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	client := cloud.NewClient(srv.URL, "secret")
	_, err := client.FetchStatus(context.Background(), cloud.JobHandle(srv.URL+"/cloud/v2/tasks/t1"))

	var te *cloud.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Status)
}

func TestFetchStatusNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := cloud.NewClient(srv.URL, "secret")
	_, err := client.FetchStatus(context.Background(), cloud.JobHandle(srv.URL+"/cloud/v2/tasks/t1"))

	var te *cloud.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Status)
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		state    cloud.TaskState
		terminal bool
	}{
		{cloud.StateUnspecified, false},
		{cloud.StateQueued, false},
		{cloud.StateProcessing, false},
		{cloud.StateComplete, true},
		{cloud.StateFailed, true},
		{cloud.StateCancelled, true},
		{cloud.TaskState("NEWER_API_STATE"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.state.IsTerminal(), "state %s", tt.state)
	}
}
