package domain

// ObserverContext is the read-only snapshot attached to every event of one
// hook invocation. It is built once per invocation and shared by all events
// and all observers of that invocation.
type ObserverContext struct {
	AppName   string `json:"app_name"`
	SessionID string `json:"session_id"`
	// HooksProcessed counts invocations seen by this process, this one included.
	HooksProcessed int64         `json:"hooks_processed"`
	Handlers       []HandlerInfo `json:"handlers"`
}

// HandlersFor returns the registered handlers bound to a stage.
func (oc *ObserverContext) HandlersFor(stage Stage) []HandlerInfo {
	var out []HandlerInfo
	for _, h := range oc.Handlers {
		if h.Stage == stage {
			out = append(out, h)
		}
	}
	return out
}
