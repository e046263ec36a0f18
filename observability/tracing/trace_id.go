package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rise-and-shine/repokit/meta"
	"go.opentelemetry.io/otel/trace"
)

// manualPrefix marks trace ids generated without a span, when tracing is off.
const manualPrefix = "man-"

// GetStartingTraceID returns the id that correlates the logs of one request:
// the trace id already stored in ctx by meta, else the id of the current span,
// else a new "man-" prefixed UUID.
func GetStartingTraceID(ctx context.Context) string {
	if id := meta.Find(ctx, meta.TraceID); id != "" {
		return id
	}

	if traceID := trace.SpanFromContext(ctx).SpanContext().TraceID(); traceID.IsValid() {
		return traceID.String()
	}

	return manualPrefix + uuid.NewString()
}
