package store

import (
	"errors"
	"fmt"
)

// ErrInvalidDatabase is matched (via errors.Is) by every *ConfigError.
var ErrInvalidDatabase = errors.New("invalid database")

// ConfigError reports a database that is misconfigured or unparseable.
type ConfigError struct {
	Location string
	Err      error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("invalid database: %v", e.Err)
	}
	return fmt.Sprintf("invalid database %s: %v", e.Location, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidDatabase) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidDatabase
}

// IOError reports a failure to read or persist a database.
type IOError struct {
	Location string
	Op       string // "read" or "write"
	Err      error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("I/O error during database %s of %s: %v", e.Op, e.Location, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsIOError returns true if err is or wraps an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
