package engine

import (
	"errors"
	"fmt"
)

// ErrConfig marks failures caused by misconfiguration (a vehicle without
// an assigned driver, a catalog missing an event type). These abort the
// current invocation and are never retried automatically; they are
// distinct from not-found lookups.
var ErrConfig = errors.New("configuration error")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
