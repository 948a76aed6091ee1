package operation

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// maxUnwrapDepth bounds walks over error chains.
const maxUnwrapDepth = 64

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FormatFailure renders err as the envelope error message: the error's
// description and recorded stack trace, then the underlying cause's description
// and stack trace. Each part sits on its own line and missing traces are skipped.
func FormatFailure(err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	writeFailure(&b, err)
	if cause := Cause(err); cause != nil {
		writeFailure(&b, cause)
	}
	return b.String()
}

func writeFailure(b *strings.Builder, err error) {
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = defaultFailureMessage
	}
	b.WriteString(msg)
	b.WriteByte('\n')

	if trace := StackTrace(err); trace != "" {
		b.WriteString(trace)
		b.WriteByte('\n')
	}
}

// Cause returns the first error down err's Unwrap chain whose description differs
// from err's own. Wrappers that only attach a stack trace are skipped.
// Returns nil when err has no distinct cause.
func Cause(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	next := errors.Unwrap(err)
	for depth := 0; next != nil && depth < maxUnwrapDepth; depth++ {
		if next.Error() != msg {
			return next
		}
		next = errors.Unwrap(next)
	}
	return nil
}

// StackTrace returns the stack recorded for err, or "" when none was recorded.
// Only wrappers sharing err's description are searched, so a cause's stack is
// never reported as err's own.
func StackTrace(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for cur, depth := err, 0; cur != nil && depth < maxUnwrapDepth; cur, depth = errors.Unwrap(cur), depth+1 {
		if cur.Error() != msg {
			return ""
		}
		if st, ok := cur.(stackTracer); ok {
			return formatFrames(st.StackTrace())
		}
	}
	return ""
}

// pkgPrefix is this package's qualified function name prefix, e.g.
// "example.com/x/operation.".
var pkgPrefix = func() string {
	name := runtime.FuncForPC(reflect.ValueOf(Cause).Pointer()).Name()
	return strings.TrimSuffix(name, "Cause")
}()

// boundaryFuncs are the frames where an execution catches failures. Frames
// past them belong to the caller and are not reported.
var boundaryFuncs = map[string]bool{
	"invoke":               true,
	"Execute":              true,
	"(*Registry).dispatch": true,
}

// formatFrames renders st up to and including the first boundary frame.
func formatFrames(st errors.StackTrace) string {
	var b strings.Builder
	for _, f := range st {
		fmt.Fprintf(&b, "\n%+v", f)
		if isBoundary(f) {
			break
		}
	}
	return strings.TrimPrefix(b.String(), "\n")
}

func isBoundary(f errors.Frame) bool {
	fn := runtime.FuncForPC(uintptr(f) - 1)
	if fn == nil {
		return false
	}
	name, ok := strings.CutPrefix(fn.Name(), pkgPrefix)
	if !ok {
		return false
	}
	// Generic instantiations are named like "invoke[...]".
	name = strings.Replace(name, "[...]", "", 1)
	return boundaryFuncs[name]
}

// recovered converts a panic value into an error carrying the panic stack.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return errors.Wrap(err, "operation panicked")
	}
	return errors.Errorf("operation panicked: %v", r)
}
