package sim

import (
	"errors"
	"fmt"
)

// RunError is a fatal error raised before or during the step loop.
//
// Every fatal error carries enough context to diagnose the failure without
// rerunning: the component that raised it, the step it happened on, and the
// offending stratum when one exists. Nothing is retried inside the core;
// rerunning with a different draw is the caller's decision.
type RunError struct {
	Code      RunErrorCode
	Message   string
	Component string
	Step      int64
	Stratum   string
	Err       error
}

// RunErrorCode categorizes fatal run errors.
type RunErrorCode string

const (
	// ErrCodeConfiguration indicates invalid configuration or rate tables,
	// detected before the step loop starts.
	ErrCodeConfiguration RunErrorCode = "CONFIGURATION"

	// ErrCodeRandomnessExhausted indicates the bounded randomness key space
	// cannot hold another entity.
	ErrCodeRandomnessExhausted RunErrorCode = "RANDOMNESS_EXHAUSTED"

	// ErrCodeSampling indicates a hazard-to-probability conversion produced
	// an out-of-range value, usually from a malformed input hazard.
	ErrCodeSampling RunErrorCode = "SAMPLING"
)

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Component != "" {
		msg += fmt.Sprintf(" (component=%s, step=%d)", e.Component, e.Step)
	}
	if e.Stratum != "" {
		msg += fmt.Sprintf(" [stratum %s]", e.Stratum)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NewConfigurationError wraps a pre-loop validation failure.
func NewConfigurationError(err error) *RunError {
	return &RunError{Code: ErrCodeConfiguration, Message: "invalid run configuration", Err: err}
}

// NewRandomnessError wraps a key-space exhaustion failure.
func NewRandomnessError(component string, step int64, err error) *RunError {
	return &RunError{
		Code:      ErrCodeRandomnessExhausted,
		Message:   "randomness key space exhausted",
		Component: component,
		Step:      step,
		Err:       err,
	}
}

// NewSamplingError reports an out-of-range probability with the stratum that
// produced it.
func NewSamplingError(component string, step int64, stratum string, err error) *RunError {
	return &RunError{
		Code:      ErrCodeSampling,
		Message:   "hazard produced an out-of-range probability",
		Component: component,
		Step:      step,
		Stratum:   stratum,
		Err:       err,
	}
}

// IsConfigurationError reports whether err is a configuration failure.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsRandomnessError reports whether err is a key-space-exhaustion failure.
func IsRandomnessError(err error) bool {
	return hasCode(err, ErrCodeRandomnessExhausted)
}

// IsSamplingError reports whether err is a sampling failure.
func IsSamplingError(err error) bool {
	return hasCode(err, ErrCodeSampling)
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
