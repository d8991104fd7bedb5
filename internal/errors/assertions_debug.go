//go:build debug

package errors

import "fmt"

// Assert panics with a ProgrammerError when cond is false. Debug builds
// (built with -tags debug) fail fast on an invariant violation instead of
// limping along.
func Assert(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	panic(&ProgrammerError{Msg: fmt.Sprintf(format, args...)})
}
