package powernet

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural configuration failures. These are detected
// when a Network is constructed and are never recoverable.
var (
	ErrNoSlack       = errors.New("no slack bus declared")
	ErrMultipleSlack = errors.New("more than one slack bus declared")
	ErrDuplicateBus  = errors.New("duplicate bus id")
	ErrUnknownBus    = errors.New("reference to undeclared bus")
	ErrSelfLoop      = errors.New("branch connects a bus to itself")
	ErrZeroImpedance = errors.New("branch series impedance is zero")
	ErrIslanded      = errors.New("network graph is not connected")
	ErrNoBuses       = errors.New("network has no buses")
)

// Sentinel errors for physically invalid input parameters. These indicate a
// caller bug and are raised before any solve is attempted.
var (
	ErrNegativeResistance = errors.New("series resistance is negative")
	ErrBadNominalVoltage  = errors.New("nominal voltage must be positive")
	ErrBadRating          = errors.New("thermal rating must be positive")
	ErrBadVoltageSetpoint = errors.New("voltage setpoint must be positive")
	ErrSetpointOutOfRange = errors.New("active power setpoint outside generator limits")
	ErrBadLimits          = errors.New("generator limits are inverted")
	ErrNotFinite          = errors.New("value is not finite")
	ErrUnknownName        = errors.New("no entity with that name")
	ErrBadTimeStep        = errors.New("time step must be positive")
	ErrBadDuration        = errors.New("duration must cover at least one step")
)

// ConfigError reports a malformed network topology.
type ConfigError struct {
	Element string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("network config: %s: %s", e.Element, e.Wrapped)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

func newConfigError(element string, wrapped error) *ConfigError {
	return &ConfigError{Element: element, Wrapped: wrapped}
}

// ValidationError reports an out-of-range or physically invalid parameter.
type ValidationError struct {
	Element string
	Field   string
	Value   float64
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s %s (value=%g)", e.Element, e.Field, e.Wrapped, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(element, field string, value float64, wrapped error) *ValidationError {
	return &ValidationError{Element: element, Field: field, Value: value, Wrapped: wrapped}
}
