package usecase

import (
	"context"

	"github.com/riskibarqy/contest-feed/internal/platform/tracing"
	"go.opentelemetry.io/otel/trace"
)

var usecaseSpans = tracing.NewScope("contest-feed/internal/usecase", nil)

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return usecaseSpans.Start(ctx, name)
}
