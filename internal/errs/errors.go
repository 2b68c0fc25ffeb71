package errs

import "fmt"

// ValidationError reports a missing or malformed required field. It is
// surfaced inline on the form and never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError means the storefront is misconfigured (most commonly a
// missing payment public key). Checkout cannot proceed until fixed.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

func Configuration(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}
