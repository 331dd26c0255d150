package domain

// Response is what a handler returns to express an opinion.
type Response struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
	// Message is shown to the user by the host (systemMessage).
	Message string `json:"message,omitempty"`
}

// AllowResponse returns an explicit allow.
func AllowResponse() *Response {
	return &Response{Decision: Allow}
}

// DenyResponse refuses the current action with a reason shown to the agent.
func DenyResponse(reason string) *Response {
	return &Response{Decision: Deny, Reason: reason}
}

// BlockResponse stops the agent with a reason.
func BlockResponse(reason string) *Response {
	return &Response{Decision: Block, Reason: reason}
}

// Result is the aggregated outcome of one hook invocation.
type Result struct {
	HookID   string
	Decision Decision
	// Reason comes from the handler that set the final decision.
	Reason  string
	Message string
	// Handlers counts the handlers that actually ran.
	Handlers int
	Skipped  int
}
