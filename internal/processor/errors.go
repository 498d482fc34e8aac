package processor

import (
	"errors"
	"fmt"
)

// ErrRejected marks a fragment a handler can never apply, such as a payload
// that is not well-formed. Dispatch logs rejected fragments and moves on
// instead of retrying them.
var ErrRejected = errors.New("fragment rejected")

// Reject wraps err so errors.Is(err, ErrRejected) holds.
func Reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}
