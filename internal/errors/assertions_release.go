//go:build !debug

package errors

import (
	"fmt"
	"log/slog"
)

// Assert logs and continues when cond is false. Hardened (non-debug)
// builds are the default: a single violated invariant should not crash a
// process that is otherwise serving traffic fine.
func Assert(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	slog.Error("assertion failed", "detail", fmt.Sprintf(format, args...))
}
