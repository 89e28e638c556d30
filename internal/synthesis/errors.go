package synthesis

import (
	"errors"
	"fmt"
)

// ErrNoTestFound reports a response that contained no test functions.
// It is recoverable: the loop discards the response and re-prompts.
var ErrNoTestFound = errors.New("response contains no test functions")

// UnparseableResponseError wraps any failure to turn a completion into a
// runnable artifact, the underlying cause included. Like ErrNoTestFound
// it is recoverable within the attempt budget.
type UnparseableResponseError struct {
	Err error
}

func (e *UnparseableResponseError) Error() string {
	return fmt.Sprintf("unparseable response: %v", e.Err)
}

func (e *UnparseableResponseError) Unwrap() error { return e.Err }
