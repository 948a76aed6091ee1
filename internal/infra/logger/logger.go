// Package logger builds the zap loggers used across crmops and adapts them to
// the operation tracing sink.
//
// Loggers are injected and usually Named: lggr.Named("api"). Tests use [Test]
// or [TestObserved]; [New] is reserved for the running binary.
package logger

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// New returns a production JSON logger writing to stderr at level.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewWith(func(cfg *zap.Config) {
		cfg.Level.SetLevel(lvl)
	})
}

// NewWith returns a logger from a modified production [zap.Config].
func NewWith(cfgFn func(*zap.Config)) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfgFn(&cfg)
	return cfg.Build()
}

// ParseLevel maps debug|info|warn|error (any case, "" = info) to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return lvl, fmt.Errorf("logger: invalid level %q: %w", level, err)
	}
	return lvl, nil
}

// Test returns a debug-level logger that writes through tb.
func Test(tb testing.TB) *zap.Logger {
	tb.Helper()
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zaptest.NewTestingWriter(tb),
			zapcore.DebugLevel,
		),
	)
}

// TestObserved returns a test logger plus the entries it records at lvl and above.
func TestObserved(tb testing.TB, lvl zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	tb.Helper()
	oCore, logs := observer.New(lvl)
	observe := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, oCore)
	})
	return zaptest.NewLogger(tb, zaptest.WrapOptions(observe, zap.AddCaller())), logs
}

// TraceSink writes operation trace messages as debug entries.
type TraceSink struct {
	l *zap.Logger
}

// Tracer adapts l to the operation tracing sink. A nil logger discards messages.
func Tracer(l *zap.Logger, fields ...zap.Field) TraceSink {
	if l == nil {
		l = zap.NewNop()
	}
	return TraceSink{l: l.With(fields...)}
}

// TraceVerbose implements operation.Tracer.
func (s TraceSink) TraceVerbose(message string) {
	s.l.Debug(message)
}
