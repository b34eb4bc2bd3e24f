package queue

import "github.com/pkg/errors"

// Sentinel errors for programmer invariant violations. These are
// programmer errors, not runtime conditions a
// caller can recover from; the queue panics with one of these wrapped by
// pkg/errors so the panic carries a stack trace back to the violating
// call site.
var (
	ErrNotCheckedOut        = errors.New("lock record does not belong to this queue")
	ErrEmptySlotPop         = errors.New("pop from an empty task queue")
	ErrCacheUnderflow       = errors.New("released a cache block more times than it was locked")
	ErrSlotIndexOutOfRange  = errors.New("slot index out of range")
	ErrOverpacked           = errors.New("extra task list exceeded peer budget")
	ErrWorkCounterUnderflow = errors.New("work counter would go negative")
)

// invariantViolation panics with err wrapped with call-site context. Used
// at the boundary of every operation documented in spec section 4's
// Failure semantics as a "fatal invariant violation".
func invariantViolation(err error, context string) {
	panic(errors.Wrap(err, context))
}
