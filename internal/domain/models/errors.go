package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every construction-time validation failure.
	ErrConfiguration = errors.New("invalid data source configuration")
	// ErrDataEnd is returned by GetData once a finite source is exhausted.
	ErrDataEnd = errors.New("data source exhausted")
)

// ConfigError reports an invalid parameter of a data source.
type ConfigError struct {
	Source  string
	Field   string
	Message string
	Err     error
}

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(source, field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Source: source, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	msg := e.Source
	if e.Field != "" {
		msg += "." + e.Field
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfiguration) hold for every ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// WithError attaches a cause.
func (e *ConfigError) WithError(err error) *ConfigError {
	e.Err = err
	return e
}
