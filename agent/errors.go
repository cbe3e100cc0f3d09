package agent

import "errors"

var (
	// ErrMaxIterationsExceeded is returned when the loop reaches its
	// iteration budget without a terminal action.
	ErrMaxIterationsExceeded = errors.New("executor loop exceeded max iterations")
	// ErrMaxRetriesExceeded is returned when consecutive recoverable
	// failures (sandbox errors or invalid model replies) reach the retry
	// budget. A model transport error is not retried and never counts here.
	ErrMaxRetriesExceeded = errors.New("executor loop exceeded max retries")
	// ErrRunNotFound is returned by run stores when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunConflict is returned by run stores on an optimistic-concurrency
	// version mismatch.
	ErrRunConflict = errors.New("run version conflict")
	// ErrConversationShape is returned by ValidateConversation when the
	// message transcript does not begin with a system message immediately
	// followed by at least one user message.
	ErrConversationShape = errors.New("conversation must start with one system message followed by at least one user message")
	// ErrRunNotSuspended is returned when a resolution is supplied for a
	// run that is not currently waiting on human input.
	ErrRunNotSuspended = errors.New("run is not suspended")
	// ErrRequirementMismatch is returned when a resolution targets a
	// requirement ID that does not match the run's pending requirement.
	ErrRequirementMismatch = errors.New("resolution does not match pending requirement")
	// ErrRunTerminal is returned when a command is issued against a run
	// that has already reached a terminal status.
	ErrRunTerminal = errors.New("run has already reached a terminal status")
	// ErrInvalidTransition is returned by the lifecycle table when a
	// status transition is not permitted.
	ErrInvalidTransition = errors.New("invalid run status transition")
	// ErrEventInvalid is returned by ValidateEvent when a payload fails
	// a publish-boundary invariant.
	ErrEventInvalid = errors.New("invalid event payload")
	// ErrExecutorContextInvalid is returned by ValidateExecutorContext
	// when a structural invariant fails before a persistence boundary.
	ErrExecutorContextInvalid = errors.New("invalid executor context")
	// ErrInvalidRunID is returned when a run ID is empty or malformed.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrNoPendingRequest is returned by the agent server when a
	// human-input response arrives but no waiter is outstanding.
	ErrNoPendingRequest = errors.New("no pending human input request")
	// ErrContextNil is returned by stores and sinks when called with a
	// nil context.Context.
	ErrContextNil = errors.New("context must not be nil")
	// ErrRunCancelled is delivered to a pending human-input waiter when
	// the run it belongs to is cancelled while suspended on it.
	ErrRunCancelled = errors.New("run was cancelled")
)
