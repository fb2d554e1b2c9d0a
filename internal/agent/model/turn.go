package model

// TurnInput represents one user turn of a conversation.
type TurnInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// ToolInvocation records one tool call executed during a turn.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// TurnStep records one internal step of the tool-calling loop: the text the
// model produced (possibly empty while it is calling tools) and the tool
// invocations it requested.
type TurnStep struct {
	Text      string           `json:"text,omitempty"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

// TurnResult is what a completed turn hands back to the caller.
type TurnResult struct {
	Text           string        `json:"text"`
	Steps          []TurnStep    `json:"steps"`
	UpdatedContext TravelContext `json:"updated_context"`
}
