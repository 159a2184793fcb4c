package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"
)

// UnsupportedSearchError is returned by a provider when none of the requested
// search fields can be used against it.
type UnsupportedSearchError struct {
	Provider string
	Fields   []string
}

func (e *UnsupportedSearchError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("provider %s cannot search without terms", e.Provider)
	}
	return fmt.Sprintf("provider %s cannot search by %s", e.Provider, strings.Join(e.Fields, ", "))
}

// NewUnsupportedSearchError creates an UnsupportedSearchError for the given provider code.
func NewUnsupportedSearchError(provider string, fields []string) *UnsupportedSearchError {
	return &UnsupportedSearchError{Provider: provider, Fields: fields}
}

// IsUnsupportedSearchError reports whether err is an UnsupportedSearchError (even when wrapped).
func IsUnsupportedSearchError(err error) bool {
	var unsupported *UnsupportedSearchError
	return stdErrors.As(err, &unsupported)
}
