package config

import (
	"errors"
	"fmt"
)

// Error is a defect in the project configuration. It is always fatal.
type Error struct {
	File    string // configuration file, when known
	Path    string // dotted location inside the configuration
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "invalid project configuration: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsError returns true if err is or wraps a configuration *Error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
