// Package meta carries request metadata through context so that logs and spans
// of one request can be correlated.
package meta

import "context"

// ContextKey is the type of the context keys owned by this package.
type ContextKey string

const (
	// TraceID correlates the logs of one request. It is the OpenTelemetry trace id
	// when tracing is enabled.
	TraceID ContextKey = "trace_id"

	// RequestUserID identifies the user making the request.
	RequestUserID ContextKey = "request_user_id"

	// Operation names the query or command being executed.
	Operation ContextKey = "operation"

	// ServiceName identifies the running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion is the version of the running service.
	ServiceVersion ContextKey = "service_version"
)

//nolint:gochecknoglobals // fixed list of keys, in logging order
var keys = []ContextKey{TraceID, RequestUserID, Operation, ServiceName, ServiceVersion}

// InjectMetaToContext returns ctx with the non-empty values of data attached.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns the non-empty metadata values found in ctx.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range keys {
		if v := Find(ctx, k); v != "" {
			data[k] = v
		}
	}
	return data
}

// Find returns the value of key in ctx, or "".
func Find(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
