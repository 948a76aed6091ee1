package operation

// Tracer is the verbose diagnostic sink supplied by the host.
// Implementations must not fail and must be safe for concurrent use.
type Tracer interface {
	TraceVerbose(message string)
}

// TracerFunc adapts a plain function to the Tracer interface.
type TracerFunc func(message string)

// TraceVerbose calls f(message).
func (f TracerFunc) TraceVerbose(message string) { f(message) }

type nopTracer struct{}

func (nopTracer) TraceVerbose(string) {}

// NopTracer discards every trace message.
var NopTracer Tracer = nopTracer{}

// ExecutionContext is the ambient, caller-owned context of one execution.
// The executor only reads it.
type ExecutionContext struct {
	Tracer        Tracer
	WorkspaceID   string
	UserID        string
	CorrelationID string
}

func (ec ExecutionContext) tracer() Tracer {
	if ec.Tracer == nil {
		return NopTracer
	}
	return ec.Tracer
}
