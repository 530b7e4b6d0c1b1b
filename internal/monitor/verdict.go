package monitor

// Outcome classifies how one orchestration run ended.
type Outcome int

const (
	// OutcomePass: the task completed and every test passed.
	OutcomePass Outcome = iota
	// OutcomeFail: the task completed but the tests inside it failed.
	// This is an expected result of running tests, not a system error.
	OutcomeFail
	// OutcomeError: the task never produced a usable test result
	// (transport failure, service failure, cancellation, timeout,
	// malformed output).
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	default:
		return "error"
	}
}

// Verdict is the final result of a run. Message carries the test report or
// the failure explanation and is surfaced regardless of outcome.
type Verdict struct {
	Outcome Outcome
	Message string
}

func NewPass(output string) Verdict { return Verdict{Outcome: OutcomePass, Message: output} }
func NewFail(output string) Verdict { return Verdict{Outcome: OutcomeFail, Message: output} }

func NewError(message string) Verdict { return Verdict{Outcome: OutcomeError, Message: message} }

// ExitCode maps the verdict to a process exit code: 0 for pass, 1 for
// failing tests, 2 for everything that kept the tests from running.
func (v Verdict) ExitCode() int {
	switch v.Outcome {
	case OutcomePass:
		return 0
	case OutcomeFail:
		return 1
	default:
		return 2
	}
}
