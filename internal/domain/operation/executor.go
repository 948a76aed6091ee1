package operation

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Trace messages emitted to the execution context's tracer.
const (
	TraceDeserialize = "DeserializeRequest started"
	TraceExecute     = "ExecuteOperation started"
	TraceError       = "Error occurred:\n"
	TraceSerialize   = "SerializeResponse started"
)

// Handler is the operation-specific step of an execution. It receives the decoded
// request and a freshly allocated response and returns the populated response.
// Returning a nil response with a nil error means res was populated in place.
type Handler[Req any, Resp any] interface {
	Handle(ctx context.Context, req Req, res Resp, ec ExecutionContext) (Resp, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[Req any, Resp any] func(ctx context.Context, req Req, res Resp, ec ExecutionContext) (Resp, error)

// Handle calls f.
func (f HandlerFunc[Req, Resp]) Handle(ctx context.Context, req Req, res Resp, ec ExecutionContext) (Resp, error) {
	return f(ctx, req, res, ec)
}

// Validator is implemented by request types that check themselves after decoding.
type Validator interface {
	Validate() error
}

// Execute decodes input into Req, runs h and returns the JSON envelope.
// It never panics and always returns valid JSON.
//
// Typical use spells out the request and response types:
//
//	out := operation.Execute[doubleRequest, doubleResponse](ctx, input, ec, h)
func Execute[Req any, Resp any, P responsePtr[Resp]](ctx context.Context, input string, ec ExecutionContext, h Handler[Req, P]) string {
	tracer := ec.tracer()

	res, err := invoke[Req, Resp, P](ctx, input, ec, h)
	if err != nil {
		res = failed[Resp, P](tracer, err)
	}

	tracer.TraceVerbose(TraceSerialize)
	return serialize[Resp, P](tracer, res)
}

func invoke[Req any, Resp any, P responsePtr[Resp]](ctx context.Context, input string, ec ExecutionContext, h Handler[Req, P]) (res P, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, recovered(r)
		}
	}()

	tracer := ec.tracer()
	tracer.TraceVerbose(TraceDeserialize)
	req, err := decodeRequest[Req](input)
	if err != nil {
		return nil, err
	}

	tracer.TraceVerbose(TraceExecute)
	res = P(new(Resp))
	out, err := h.Handle(ctx, req, res, ec)
	if err != nil {
		return nil, err
	}
	if (*Resp)(out) != nil {
		res = out
	}
	res.MarkSucceeded()
	return res, nil
}

func decodeRequest[Req any](input string) (Req, error) {
	var req Req
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return req, errors.Wrap(err, "deserialize request")
	}

	var v any = req
	if _, ok := v.(Validator); !ok {
		v = &req
	}
	if validator, ok := v.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return req, errors.Wrap(err, "validate request")
		}
	}
	return req, nil
}

// failed builds the empty failure response for err and traces it.
func failed[Resp any, P responsePtr[Resp]](tracer Tracer, err error) P {
	msg := FormatFailure(err)
	tracer.TraceVerbose(TraceError + msg)

	res := P(new(Resp))
	res.MarkFailed(msg)
	return res
}

func serialize[Resp any, P responsePtr[Resp]](tracer Tracer, res P) string {
	raw, err := json.Marshal(res)
	if err == nil {
		return string(raw)
	}

	// A payload that cannot be encoded degrades to the bare envelope.
	res = failed[Resp, P](tracer, errors.Wrap(err, "serialize response"))
	if raw, err = json.Marshal(res); err == nil {
		return string(raw)
	}
	return envelopeOnly(errors.Wrap(err, "serialize response"))
}

// FailureEnvelope returns the bare failure envelope for err, traced like an
// executor failure. Hosts use it when no operation could be dispatched.
func FailureEnvelope(ec ExecutionContext, err error) string {
	tracer := ec.tracer()
	msg := FormatFailure(err)
	tracer.TraceVerbose(TraceError + msg)
	tracer.TraceVerbose(TraceSerialize)

	var res Response
	res.MarkFailed(msg)
	raw, _ := json.Marshal(res)
	return string(raw)
}

func envelopeOnly(err error) string {
	var res Response
	res.MarkFailed(FormatFailure(err))
	raw, _ := json.Marshal(res)
	return string(raw)
}
