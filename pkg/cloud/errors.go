package cloud

import (
	"errors"
	"fmt"
)

// ErrMissingTaskPath is returned when a submission succeeds at the HTTP
// level but the response carries no task resource path to poll.
var ErrMissingTaskPath = errors.New("submission response contains no task path")

// TransportError normalizes every way a round trip against the service can
// fail: dial/IO errors, non-success HTTP statuses, undecodable bodies.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Op     string // "submit" or "fetch status"
	Status int
	Body   string // response excerpt, for the operator
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		if e.Body != "" {
			return fmt.Sprintf("%s: service returned status %d: %s", e.Op, e.Status, e.Body)
		}
		return fmt.Sprintf("%s: service returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
