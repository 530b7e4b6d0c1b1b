package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrej220/luauci/internal/lg"
	"github.com/andrej220/luauci/pkg/cloud"
	"github.com/andrej220/luauci/pkg/notify"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const DefaultPollInterval = 3 * time.Second

// ErrMalformedResponse marks a COMPLETE task whose output payload is
// missing or unusable. It is never folded into a pass/fail guess.
var ErrMalformedResponse = errors.New("task completed with a malformed output payload")

// errTaskRunning keeps the poll loop going; it never leaves the package.
var errTaskRunning = errors.New("task not yet terminal")

// StatusClient is the transport the monitor drives. *cloud.Client
// satisfies it; tests substitute fakes.
type StatusClient interface {
	Submit(ctx context.Context, req cloud.SubmissionRequest) (cloud.JobHandle, error)
	FetchStatus(ctx context.Context, handle cloud.JobHandle) (cloud.JobStatus, error)
}

// Monitor owns one submit -> poll -> finalize lifecycle. Instances are
// independent; running several concurrently needs no coordination.
type Monitor struct {
	client   StatusClient
	logger   lg.Logger
	notifier notify.Notifier
	interval time.Duration
}

type Config struct {
	Interval time.Duration
	Notifier notify.Notifier
}

func New(client StatusClient, logger lg.Logger, cfg Config) *Monitor {
	if logger == nil {
		logger = lg.Discard
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.LogNotifier{Logger: logger}
	}
	return &Monitor{
		client:   client,
		logger:   logger,
		notifier: cfg.Notifier,
		interval: cfg.Interval,
	}
}

// Run submits the script once and polls its task until a terminal state,
// the deadline, or ctx ends the loop. Every exit path yields a Verdict
// with an explanation; nothing is swallowed.
func (m *Monitor) Run(ctx context.Context, req cloud.SubmissionRequest, deadline time.Duration) Verdict {
	runID := uuid.New().String()
	logger := m.logger.With(
		lg.String("run", runID),
		lg.Int64("universe", req.UniverseID),
		lg.Int64("place", req.PlaceID),
	)

	handle, err := m.client.Submit(ctx, req)
	if err != nil {
		logger.Error("submission failed", lg.Err(err))
		return NewError(err.Error())
	}
	logger.Info("task submitted", lg.String("handle", string(handle)))

	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var last cloud.JobStatus
	prev := cloud.TaskState("")

	poll := func() error {
		status, err := m.client.FetchStatus(pollCtx, handle)
		if err != nil {
			// transport failures are fatal, never retried
			return backoff.Permanent(err)
		}
		if status.State != prev {
			m.notifier.Notify(pollCtx, notify.TaskEvent{
				RunID:      runID,
				UniverseID: req.UniverseID,
				PlaceID:    req.PlaceID,
				From:       prev,
				To:         status.State,
				At:         time.Now(),
			})
			prev = status.State
		}
		last = status
		if status.State.IsTerminal() {
			return nil
		}
		return errTaskRunning
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(m.interval), pollCtx)
	if err := backoff.Retry(poll, bo); err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			logger.Error("timed out waiting for terminal state", lg.Dur("deadline", deadline))
			return NewError(fmt.Sprintf("no terminal state within %s", deadline))
		case errors.Is(err, context.Canceled):
			logger.Warn("run cancelled by caller")
			return NewError("run cancelled")
		default:
			logger.Error("status poll failed", lg.Err(err))
			return NewError(err.Error())
		}
	}

	return m.finalize(logger, last)
}

// finalize maps the first observed terminal snapshot to a verdict. It is
// only reached once; the poll loop stops on the same iteration that saw
// the terminal state.
func (m *Monitor) finalize(logger lg.Logger, status cloud.JobStatus) Verdict {
	switch status.State {
	case cloud.StateComplete:
		if status.Output == nil || len(status.Output.Results) == 0 {
			logger.Error("task complete but output payload is unusable")
			return NewError(ErrMalformedResponse.Error())
		}
		result := status.Output.Results[0]
		if result.AllPass {
			logger.Info("all tests passed")
			return NewPass(result.Output)
		}
		logger.Info("tests failed", lg.String("state", string(status.State)))
		return NewFail(result.Output)

	case cloud.StateFailed:
		msg := "task execution failed"
		if status.Error != nil && status.Error.Message != "" {
			msg = status.Error.Message
		}
		logger.Error("task failed", lg.String("state", string(status.State)), lg.String("message", msg))
		return NewError(msg)

	case cloud.StateCancelled:
		logger.Error("task cancelled by the service", lg.String("state", string(status.State)))
		return NewError("task cancelled")

	default:
		// the loop only exits on terminal states; keep the guard anyway
		logger.Error("finalize called on non-terminal state", lg.String("state", string(status.State)))
		return NewError(fmt.Sprintf("unexpected task state %q", status.State))
	}
}
