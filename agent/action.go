package agent

// ActionKind is the discriminant of a structured LLM reply, validated
// against the Action Schema (C4) before the executor dispatches on it.
type ActionKind string

const (
	ActionEvalAndContinue ActionKind = "eval_and_continue"
	ActionEvalAndComplete ActionKind = "eval_and_complete"
	ActionReturn          ActionKind = "return"
	ActionDone            ActionKind = "done"
)

// ActionReply is the LLM's structured turn: a discriminant, the
// sandbox source to evaluate (empty for return/done), and a result
// object shaped by the agent's output schema.
type ActionReply struct {
	Action ActionKind     `json:"action"`
	Code   string         `json:"code"`
	Result map[string]any `json:"result"`
}

// IsCodeAction reports whether the action carries sandbox source that
// the executor must evaluate before it can settle.
func (a ActionReply) IsCodeAction() bool {
	return a.Action == ActionEvalAndContinue || a.Action == ActionEvalAndComplete
}
