package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// Provider errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMalformedPayload   = fmt.Errorf("malformed provider payload")
	ErrNoProvider         = fmt.Errorf("no provider implemented for platform")

	// Storage errors
	ErrStorage          = fmt.Errorf("storage failure")
	ErrNotFound         = fmt.Errorf("not found")
	ErrIdentityConflict = fmt.Errorf("identity conflict")

	// Task errors
	ErrQueueFull   = fmt.Errorf("task queue is full")
	ErrPoolStopped = fmt.Errorf("task pool stopped")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
