package cli

import (
	"errors"
	"fmt"
)

// ErrUsage matches every error caused by bad flags or config values. Their
// messages already carry the hint or usage text.
var ErrUsage = errors.New("swagger2client: invalid usage")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return &usageError{msg: msg}
}

func usagef(format string, args ...any) error {
	return newUsageError(fmt.Sprintf(format, args...))
}

func (e *usageError) Error() string { return e.msg }

func (e *usageError) Is(target error) bool { return target == ErrUsage }
