package fasthooks

import "github.com/aretw0/fasthooks/pkg/domain"

// PreToolUse registers a handler that runs before the listed tools.
func (a *App) PreToolUse(name string, fn domain.HandlerFunc, tools ...string) error {
	return a.Handle(domain.StagePreToolUse, name, fn, tools...)
}

// PostToolUse registers a handler that runs after the listed tools.
func (a *App) PostToolUse(name string, fn domain.HandlerFunc, tools ...string) error {
	return a.Handle(domain.StagePostToolUse, name, fn, tools...)
}

// OnPermission registers a handler for permission requests on the listed tools.
func (a *App) OnPermission(name string, fn domain.HandlerFunc, tools ...string) error {
	return a.Handle(domain.StagePermissionRequest, name, fn, tools...)
}

func (a *App) OnStop(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageStop, name, fn)
}

func (a *App) OnSubagentStop(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageSubagentStop, name, fn)
}

func (a *App) OnSessionStart(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageSessionStart, name, fn)
}

func (a *App) OnSessionEnd(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageSessionEnd, name, fn)
}

func (a *App) OnPreCompact(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StagePreCompact, name, fn)
}

// OnPrompt registers a handler for submitted user prompts.
func (a *App) OnPrompt(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageUserPromptSubmit, name, fn)
}

func (a *App) OnNotification(name string, fn domain.HandlerFunc) error {
	return a.Handle(domain.StageNotification, name, fn)
}
