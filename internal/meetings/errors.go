package meetings

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ViolationKind classifies a business-rule failure.
type ViolationKind string

const (
	// ViolationInvalid marks missing or malformed input.
	ViolationInvalid ViolationKind = "invalid"
	// ViolationNotFound marks a reference that does not resolve to a record.
	ViolationNotFound ViolationKind = "not_found"
)

const (
	MessageMeetingTypeRequired = "Meeting type is required"
	MessageInvalidMeetingType  = "Invalid meeting type"
	MessageMeetingDateRequired = "Meeting date is required"
	MessageInvalidMeetingDate  = "Invalid meeting date"
	MessageMeetingIDRequired   = "Meeting id is required"
	MessageMeetingNotFound     = "Meeting not found"
)

// RuleViolation is returned for client errors. Nothing has been persisted when one is returned.
type RuleViolation struct {
	Kind    ViolationKind
	Message string
}

func (v *RuleViolation) Error() string {
	return v.Message
}

// NewInvalid builds an input violation.
func NewInvalid(message string) *RuleViolation {
	return &RuleViolation{Kind: ViolationInvalid, Message: message}
}

// NewNotFound builds a missing-reference violation.
func NewNotFound(message string) *RuleViolation {
	return &RuleViolation{Kind: ViolationNotFound, Message: message}
}

// AsRuleViolation reports whether err carries a RuleViolation.
func AsRuleViolation(err error) (*RuleViolation, bool) {
	var violation *RuleViolation
	if errors.As(err, &violation) {
		return violation, true
	}
	return nil, false
}

// ViolationFromValidation converts the first struct validation failure into a violation
// using the provided field → tag → message table.
func ViolationFromValidation(err error, messages map[string]map[string]string) *RuleViolation {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return NewInvalid(err.Error())
	}
	first := fieldErrors[0]
	if byTag, ok := messages[first.StructField()]; ok {
		if message, ok := byTag[first.Tag()]; ok {
			return NewInvalid(message)
		}
	}
	return NewInvalid(fmt.Sprintf("%s is invalid", first.Field()))
}

// ServiceError reports an unexpected storage or dependency failure.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

// NewServiceError wraps cause with the "<operation>.<reason>" code reported in logs.
func NewServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
