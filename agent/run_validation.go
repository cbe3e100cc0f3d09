package agent

import (
	"errors"
	"fmt"
)

// ValidateExecutorContext checks structural invariants before
// persistence boundaries.
func ValidateExecutorContext(ctx ExecutorContext) error {
	if ctx.ID == "" {
		return errors.Join(
			ErrExecutorContextInvalid,
			fmt.Errorf("%w: field=id reason=empty", ErrInvalidRunID),
		)
	}
	if ctx.Iteration < 0 {
		return fmt.Errorf(
			"%w: field=iteration reason=negative value=%d run_id=%q",
			ErrExecutorContextInvalid,
			ctx.Iteration,
			ctx.ID,
		)
	}
	if ctx.Retry < 0 {
		return fmt.Errorf(
			"%w: field=retry reason=negative value=%d run_id=%q",
			ErrExecutorContextInvalid,
			ctx.Retry,
			ctx.ID,
		)
	}
	if ctx.Version < 0 {
		return fmt.Errorf(
			"%w: field=version reason=negative value=%d run_id=%q",
			ErrExecutorContextInvalid,
			ctx.Version,
			ctx.ID,
		)
	}
	if !isKnownRunStatus(ctx.Status) {
		return fmt.Errorf(
			"%w: field=status reason=unknown value=%q run_id=%q",
			ErrExecutorContextInvalid,
			ctx.Status,
			ctx.ID,
		)
	}
	if ctx.Status == RunStatusSuspended && ctx.PendingRequirement == nil {
		return fmt.Errorf(
			"%w: field=pending_requirement reason=nil status=%s run_id=%q",
			ErrExecutorContextInvalid,
			ctx.Status,
			ctx.ID,
		)
	}
	return nil
}

func isKnownRunStatus(status RunStatus) bool {
	switch status {
	case RunStatusPending,
		RunStatusRunning,
		RunStatusSuspended,
		RunStatusCancelled,
		RunStatusCompleted,
		RunStatusFailed,
		RunStatusMaxIterations,
		RunStatusMaxRetries:
		return true
	default:
		return false
	}
}
