package notify

import (
	"context"
	"time"

	"github.com/andrej220/luauci/internal/lg"
	"github.com/andrej220/luauci/pkg/cloud"
)

// TaskEvent describes one observed state transition of a running task.
type TaskEvent struct {
	RunID      string          `json:"runID"`
	UniverseID int64           `json:"universeID"`
	PlaceID    int64           `json:"placeID"`
	From       cloud.TaskState `json:"from"`
	To         cloud.TaskState `json:"to"`
	At         time.Time       `json:"at"`
}

// Notifier receives state transition events. Notifications are purely
// informational: implementations must not fail the run, whatever happens
// to the event.
type Notifier interface {
	Notify(ctx context.Context, ev TaskEvent)
}

// LogNotifier writes transitions through the structured logger.
type LogNotifier struct {
	Logger lg.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev TaskEvent) {
	n.Logger.Info("task state changed",
		lg.String("run", ev.RunID),
		lg.Int64("universe", ev.UniverseID),
		lg.Int64("place", ev.PlaceID),
		lg.String("from", string(ev.From)),
		lg.String("to", string(ev.To)),
	)
}

// Multi fans one event out to every wrapped notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev TaskEvent) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}
