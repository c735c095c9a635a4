package imm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter is matched by every *InvalidParameterError.
	ErrInvalidParameter = errors.New("imm: invalid parameter")

	// ErrIncompatibleModel is matched by every *IncompatibleModelError.
	ErrIncompatibleModel = errors.New("imm: incompatible model")

	// ErrNumerical signals a computation that cannot proceed, such as an
	// observation whose candidate weights are all zero or a posterior scale
	// matrix that is not positive definite. It points at a modeling
	// misconfiguration and is never retried.
	ErrNumerical = errors.New("imm: numerical failure")
)

// InvalidParameterError reports an inference argument outside its domain.
// It is always returned before the first iteration runs.
type InvalidParameterError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("imm: invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

func invalidParam(param string, value any, format string, args ...any) error {
	return &InvalidParameterError{Param: param, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// IncompatibleModelError reports a process or mixture model that the sampler
// does not declare in its compatibility table.
type IncompatibleModelError struct {
	Sampler SamplerKind
	// Model is the offending model's kind, or its Go type when the kind is
	// declared but the model lacks the capability the kind requires.
	Model   string
	Allowed []string
}

func (e *IncompatibleModelError) Error() string {
	return fmt.Sprintf("imm: %s sampler does not support model %s (allowed: %s)",
		e.Sampler, e.Model, strings.Join(e.Allowed, ", "))
}

func (e *IncompatibleModelError) Unwrap() error { return ErrIncompatibleModel }
