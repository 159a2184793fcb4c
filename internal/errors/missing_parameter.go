package errors

import (
	stdErrors "errors"
	"fmt"
)

// MissingParameterError is returned when a provider is constructed without a
// parameter it cannot work without (usually an API key).
type MissingParameterError struct {
	Provider  string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("provider %s requires parameter %q", e.Provider, e.Parameter)
}

// NewMissingParameterError creates a MissingParameterError.
func NewMissingParameterError(provider, parameter string) *MissingParameterError {
	return &MissingParameterError{Provider: provider, Parameter: parameter}
}

// IsMissingParameterError reports whether err is a MissingParameterError (even when wrapped).
func IsMissingParameterError(err error) bool {
	var missing *MissingParameterError
	return stdErrors.As(err, &missing)
}
