package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure families of the engine.
var (
	ErrNoYearRange      = errors.New("no year range found")
	ErrYearRangeOrder   = errors.New("year range ends before it starts")
	ErrNoVehicleMatch   = errors.New("no model mapping matches vehicle text")
	ErrExpansionTooBig  = errors.New("fitment expansion exceeds configured cap")
	ErrMalformedMapping = errors.New("mapping target must be make|code|model")
	ErrNotConfigured    = errors.New("mapping table not loaded")
	ErrNotFound         = errors.New("not found")
)

// ParseError marks a single application string as unparseable. It is caught
// at the batch boundary and recorded against its input; it never aborts a
// batch.
type ParseError struct {
	Input   string
	Wrapped error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Wrapped)
}

func (e *ParseError) Unwrap() error { return e.Wrapped }

// NewParseError wraps a sentinel with the offending input.
func NewParseError(input string, wrapped error) *ParseError {
	return &ParseError{Input: input, Wrapped: wrapped}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ConfigError marks a malformed mapping rule at load time. Loading is
// all-or-nothing: one bad rule fails the whole table.
type ConfigError struct {
	Target  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mapping config %q: %s", e.Target, e.Wrapped)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// NewConfigError wraps a sentinel with the offending mapping target.
func NewConfigError(target string, wrapped error) *ConfigError {
	return &ConfigError{Target: target, Wrapped: wrapped}
}

// MappingError marks an orchestration-level failure, typically a reference
// data provider call going wrong. These are fatal to the operation and
// propagate to the caller.
type MappingError struct {
	Op      string
	Wrapped error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping engine: %s: %s", e.Op, e.Wrapped)
}

func (e *MappingError) Unwrap() error { return e.Wrapped }

// NewMappingError wraps a provider or wiring failure with the operation name.
func NewMappingError(op string, wrapped error) *MappingError {
	return &MappingError{Op: op, Wrapped: wrapped}
}
