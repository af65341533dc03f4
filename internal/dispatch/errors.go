package dispatch

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrOperationCanceled = errors.New("dispatch_operation_canceled")
	ErrOperationFailed   = errors.New("dispatch_operation_failed")
)

// RunError carries the user and step of a failed dispatch run. It matches
// both its classification sentinel and the underlying cause under errors.Is.
type RunError struct {
	UserID snowflake.ID
	Op     string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("dispatch user %s: %s: %v", e.UserID, e.Op, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func canceled(userID snowflake.ID, op string, cause error) error {
	return &RunError{UserID: userID, Op: op, Err: fmt.Errorf("%w: %w", ErrOperationCanceled, cause)}
}

func failed(userID snowflake.ID, op string, cause error) error {
	return &RunError{UserID: userID, Op: op, Err: fmt.Errorf("%w: %w", ErrOperationFailed, cause)}
}
