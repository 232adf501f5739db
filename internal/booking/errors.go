package booking

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries field-level messages for the contact step
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StepError is returned when an operation is attempted from the wrong step
// or before its preconditions hold
type StepError struct {
	Step   int
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Reason)
}

// PaymentError is returned when a checkout session has not been paid
type PaymentError struct {
	SessionID string
	Status    string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment session %s not completed (status %q)", e.SessionID, e.Status)
}

// CollaboratorError wraps a failure from the checkout, scheduling or record service
type CollaboratorError struct {
	Op    string
	Cause error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// PaymentMismatchError is returned when a paid checkout session was opened
// for a different visitor, purpose, service or amount than the one it is
// being redeemed for
type PaymentMismatchError struct {
	SessionID string
	Field     string
	Want      string
	Got       string
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment session %s does not match this purchase: %s is %q, expected %q", e.SessionID, e.Field, e.Got, e.Want)
}

// SessionUsedError is returned when a payment session has already been
// redeemed for a booking or for credits
type SessionUsedError struct {
	SessionID string
}

func (e *SessionUsedError) Error() string {
	return fmt.Sprintf("payment session %s has already been redeemed", e.SessionID)
}
