package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing API token")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoActiveSession    = fmt.Errorf("no active session")
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrRecipeNotFound     = fmt.Errorf("recipe not found")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Session state errors
	ErrSessionTerminal    = fmt.Errorf("session is completed or abandoned")
	ErrTimerNotFound      = fmt.Errorf("timer not found")
	ErrInvalidTransition  = fmt.Errorf("invalid timer transition")
	ErrStaleSnapshot      = fmt.Errorf("stale session snapshot")
	ErrSuggestionConsumed = fmt.Errorf("suggestion already dispatched")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
