package operation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrExecutorAlreadyRegistered = errors.New("operation executor already registered")
	ErrExecutorNotRegistered     = errors.New("operation executor not registered")
	ErrInputValidationFailed     = errors.New("operation input validation failed")
)

// TopicCompleted is the event topic published after every registry execution.
const TopicCompleted = "operation.completed"

// defaultInputSchema is advertised for operations that declare no schema.
var defaultInputSchema = json.RawMessage(`{"type":"object"}`)

// Executor is the untyped runtime contract of a registered operation.
type Executor interface {
	Execute(ctx context.Context, input string, ec ExecutionContext) string
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, input string, ec ExecutionContext) string

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, input string, ec ExecutionContext) string {
	return f(ctx, input, ec)
}

// Bind adapts a typed handler to the Executor interface.
func Bind[Req any, Resp any, P responsePtr[Resp]](h Handler[Req, P]) Executor {
	return ExecutorFunc(func(ctx context.Context, input string, ec ExecutionContext) string {
		return Execute[Req, Resp, P](ctx, input, ec, h)
	})
}

// Definition describes a registered operation.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Publisher receives completion events. eventbus.Bus satisfies it.
type Publisher interface {
	Publish(topic string, payload any)
}

// Completed is the payload of TopicCompleted events.
type Completed struct {
	Operation     string
	WorkspaceID   string
	UserID        string
	CorrelationID string
	Success       bool
	ErrorMessage  string
	StartedAt     time.Time
	Duration      time.Duration
}

type entry struct {
	def  Definition
	exec Executor
}

// Registry maps operation names to executors.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]entry
	publisher Publisher
}

// NewRegistry returns an empty registry. publisher may be nil.
func NewRegistry(publisher Publisher) *Registry {
	return &Registry{entries: make(map[string]entry), publisher: publisher}
}

// Register adds executor under def.Name. Names must be unique and non-blank.
func (r *Registry) Register(def Definition, executor Executor) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" || executor == nil {
		return ErrExecutorNotRegistered
	}
	if len(def.InputSchema) == 0 {
		def.InputSchema = defaultInputSchema
	}
	if !json.Valid(def.InputSchema) {
		return fmt.Errorf("operation %q: input schema must be valid json", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return ErrExecutorAlreadyRegistered
	}
	r.entries[def.Name] = entry{def: def, exec: executor}
	return nil
}

// Get returns the executor registered under name.
func (r *Registry) Get(name string) (Executor, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.exec, nil
}

// Definition returns the definition registered under name.
func (r *Registry) Definition(name string) (Definition, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Definition{}, err
	}
	return e.def, nil
}

// Definitions returns all definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	out := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.def)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the operation registered under name and returns its envelope.
// Unknown names and schema mismatches produce failure envelopes.
func (r *Registry) Execute(ctx context.Context, name, input string, ec ExecutionContext) string {
	started := time.Now().UTC()
	out := r.dispatch(ctx, name, input, ec)
	r.publishCompleted(name, ec, out, started)
	return out
}

func (r *Registry) dispatch(ctx context.Context, name, input string, ec ExecutionContext) (out string) {
	defer func() {
		if p := recover(); p != nil {
			out = FailureEnvelope(ec, recovered(p))
		}
	}()

	e, err := r.lookup(name)
	if err != nil {
		return FailureEnvelope(ec, fmt.Errorf("%w: %q", err, name))
	}
	if err := checkInput(e.def.InputSchema, input); err != nil {
		return FailureEnvelope(ec, err)
	}
	return e.exec.Execute(ctx, input, ec)
}

func (r *Registry) lookup(name string) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return entry{}, ErrExecutorNotRegistered
	}
	return e, nil
}

func (r *Registry) publishCompleted(name string, ec ExecutionContext, out string, started time.Time) {
	if r.publisher == nil {
		return
	}

	var probe Response
	_ = json.Unmarshal([]byte(out), &probe)

	r.publisher.Publish(TopicCompleted, Completed{
		Operation:     name,
		WorkspaceID:   ec.WorkspaceID,
		UserID:        ec.UserID,
		CorrelationID: ec.CorrelationID,
		Success:       probe.Success,
		ErrorMessage:  probe.FailureMessage(),
		StartedAt:     started,
		Duration:      time.Since(started),
	})
}
