package models

import (
	"errors"
	"fmt"
)

// Error codes are stable and safe for client-side branching.
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeStateTransition  = "STATE_TRANSITION"
	CodeInvalidStepState = "INVALID_STEP_STATE"
	CodeDuplicate        = "DUPLICATE"
	CodePolicyViolation  = "POLICY_VIOLATION"
	CodeConfiguration    = "CONFIGURATION"
	CodeInternal         = "INTERNAL"
)

// ErrInternal is the only message surfaced for unexpected failures.
// Details go to the log, never to the caller.
var ErrInternal = errors.New("something went wrong, please try again later")

// ValidationError: malformed or missing input, caller's fault.
// Message is safe to show verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Code() string  { return CodeValidation }

// NotFoundError: the entity is absent or belongs to another tenant.
// The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }
func (e *NotFoundError) Code() string  { return CodeNotFound }

// StateTransitionError: an illegal edge in a status state machine.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition: %s -> %s", e.Entity, e.From, e.To)
}
func (e *StateTransitionError) Code() string { return CodeStateTransition }

// InvalidStepStateError: a timeline step in a terminal state was asked to move.
type InvalidStepStateError struct {
	Current string
}

func (e *InvalidStepStateError) Error() string {
	return "timeline step cannot be changed because it is already " + e.Current
}
func (e *InvalidStepStateError) Code() string { return CodeInvalidStepState }

// DuplicateError: a per-tenant or per-cemetery uniqueness violation.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}
func (e *DuplicateError) Code() string { return CodeDuplicate }

// PolicyViolationError: a business rule blocked the operation.
type PolicyViolationError struct {
	Rule    string
	Message string
}

func (e *PolicyViolationError) Error() string { return e.Message }
func (e *PolicyViolationError) Code() string  { return CodePolicyViolation }

// ConfigurationError: the tenant is missing required configuration.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }
func (e *ConfigurationError) Code() string  { return CodeConfiguration }

// Coder is implemented by every typed domain error.
type Coder interface {
	error
	Code() string
}

// ErrorCode extracts the stable code, defaulting to INTERNAL.
func ErrorCode(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// SafeMessage reports whether an error message may be shown verbatim
// to an end user.
func SafeMessage(err error) bool {
	switch ErrorCode(err) {
	case CodeValidation, CodeNotFound, CodeStateTransition,
		CodeInvalidStepState, CodeDuplicate, CodePolicyViolation,
		CodeConfiguration:
		return true
	}
	return false
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsDuplicate(err error) bool {
	var e *DuplicateError
	return errors.As(err, &e)
}

func IsPolicyViolation(err error) bool {
	var e *PolicyViolationError
	return errors.As(err, &e)
}
