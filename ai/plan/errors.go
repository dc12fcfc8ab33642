package plan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError rejects malformed plan or action input before any
// execution attempt.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError is returned when a referenced plan or message is absent.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ActionWriteError is a rejected write on the external platform: a
// validation failure, a conflict, or any non-2xx response that targets a
// specific action. Caught per action; execution continues.
type ActionWriteError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *ActionWriteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s rejected (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Message)
}

// InfrastructureError is a transport or store failure at the orchestration
// level, as opposed to the platform rejecting a specific write. It aborts
// the remaining actions and surfaces as a top-level execution failure.
type InfrastructureError struct {
	Cause error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure: %v", e.Cause)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsInfrastructure classifies an error from a handler or store call.
// Classification rule: connection-level unreachability, HTTP 5xx and auth
// failures from the platform are infrastructure; a per-call timeout and
// any other rejection are per-action failures. Unknown errors default to
// per-action so one bad write never takes down the rest of the batch.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}

	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return true
	}

	var write *ActionWriteError
	if errors.As(err, &write) {
		// 5xx and auth failures mean the platform or credentials are
		// broken for every remaining action, not just this one.
		return write.StatusCode >= 500 || write.StatusCode == 401 || write.StatusCode == 403
	}

	// A timed-out call fails only the action that timed out; the next
	// action may still go through.
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
	} {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
