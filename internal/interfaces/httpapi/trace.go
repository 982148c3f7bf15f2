package httpapi

import (
	"context"

	"github.com/riskibarqy/contest-feed/internal/platform/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Only handler spans are recorded; middleware and helpers stay quiet.
var apiSpans = tracing.NewScope("contest-feed/internal/interfaces/httpapi", shouldCreateHTTPAPISpan)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return apiSpans.Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	return tracing.PrefixFilter("httpapi.Handler.")(name)
}
