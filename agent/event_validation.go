package agent

import "fmt"

// ValidateEvent checks event payload invariants before publish boundaries.
func ValidateEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: field=type reason=empty", ErrEventInvalid)
	}
	if event.RunID == "" {
		return fmt.Errorf("%w: field=run_id reason=empty type=%s", ErrEventInvalid, event.Type)
	}
	if event.Iteration < 0 {
		return fmt.Errorf(
			"%w: field=iteration reason=negative value=%d type=%s run_id=%q",
			ErrEventInvalid,
			event.Iteration,
			event.Type,
			event.RunID,
		)
	}

	switch event.Type {
	case EventTypeCallStart, EventTypeCallEnd, EventTypeIterationEnd:
		if event.Message == nil {
			return fmt.Errorf(
				"%w: field=message reason=nil type=%s run_id=%q iteration=%d",
				ErrEventInvalid,
				event.Type,
				event.RunID,
				event.Iteration,
			)
		}
	case EventTypeHumanRequested, EventTypeHumanResolved:
		if event.Description == "" {
			return fmt.Errorf(
				"%w: field=description reason=empty type=%s run_id=%q iteration=%d",
				ErrEventInvalid,
				event.Type,
				event.RunID,
				event.Iteration,
			)
		}
	}

	return nil
}
