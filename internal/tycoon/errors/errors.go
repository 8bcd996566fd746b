package errors

import (
	"fmt"
)

var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
	ErrInvalidTransition = fmt.Errorf("invalid state transition")
	ErrBugCapReached     = fmt.Errorf("product bug cap reached")
	ErrLockHeld          = fmt.Errorf("lock held by another runner")
	ErrUnknownJob        = fmt.Errorf("unknown job")
	ErrTickInProgress    = fmt.Errorf("previous tick still running")
)
