// Package tracing opens child spans for internal layers without starting
// new traces on requests the HTTP tracer filtered out.
package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var noop = trace.SpanFromContext(context.Background())

// Scope is a named tracer with an optional span filter.
type Scope struct {
	tracer trace.Tracer
	allow  func(name string) bool
}

// NewScope returns a Scope for the given instrumentation name. A nil allow
// accepts every non-empty span name.
func NewScope(instrumentation string, allow func(name string) bool) Scope {
	return Scope{tracer: otel.Tracer(instrumentation), allow: allow}
}

// Start opens a child span when ctx already carries a valid span and the
// name passes the filter. Otherwise it returns ctx and a no-op span.
func (s Scope) Start(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, noop
	}
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noop
	}
	if s.allow != nil && !s.allow(name) {
		return ctx, noop
	}
	return s.tracer.Start(ctx, name)
}

// PrefixFilter accepts names starting with any of the prefixes.
func PrefixFilter(prefixes ...string) func(string) bool {
	return func(name string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				return true
			}
		}
		return false
	}
}
