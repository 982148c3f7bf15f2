package logging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const missingKey = "arg"

// fieldsOf turns alternating key/value args into zap fields. A zap.Field
// may be passed directly in place of a pair.
func fieldsOf(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+2)
	for i := 0; i < len(args); {
		if field, ok := args[i].(zap.Field); ok {
			fields = append(fields, field)
			i++
			continue
		}

		key, ok := args[i].(string)
		if !ok || key == "" {
			key = missingKey
		}
		if i+1 == len(args) {
			fields = append(fields, zap.Any(key, nil))
			break
		}
		fields = append(fields, fieldOf(key, args[i+1]))
		i += 2
	}
	return fields
}

func fieldOf(key string, value any) zap.Field {
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	default:
		return zap.Any(key, v)
	}
}

func traceFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	}
}
