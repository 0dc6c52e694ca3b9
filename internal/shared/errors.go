package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Backend errors
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Lookup errors
	ErrItemNotFound   = fmt.Errorf("item not found")
	ErrPromptNotFound = fmt.Errorf("prompt not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrUnsafeURL       = fmt.Errorf("refusing to open url")
)
