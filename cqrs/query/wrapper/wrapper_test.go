package wrapper_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/rise-and-shine/repokit/cqrs/query"
	"github.com/rise-and-shine/repokit/cqrs/query/wrapper"
	"github.com/rise-and-shine/repokit/meta"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/rise-and-shine/repokit/val"
)

type listProducts struct {
	Category string
}

type countProducts struct{}

func (countProducts) Execute(_ context.Context, _ listProducts) (int, error) {
	return 7, nil
}

func nopLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Disable: true})
	require.NoError(t, err)
	return log
}

func failing(err error) query.Query[listProducts, int] {
	return query.Func[listProducts, int](func(context.Context, listProducts) (int, error) {
		return 0, err
	})
}

func panicking() query.Query[listProducts, int] {
	return query.Func[listProducts, int](func(context.Context, listProducts) (int, error) {
		panic("boom")
	})
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	got, err := wrapper.NewTracingQueryWrapper[listProducts, int]("")(countProducts{}).
		Execute(t.Context(), listProducts{})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	notFound := errx.New("category not found", errx.WithType(errx.T_NotFound))
	_, err = wrapper.NewTracingQueryWrapper[listProducts, int]("ListProducts")(failing(notFound)).
		Execute(t.Context(), listProducts{})
	require.ErrorIs(t, err, notFound)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "countProducts", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "ListProducts", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.NotEmpty(t, spans[1].Events(), "error is recorded")
}

func TestRecovery(t *testing.T) {
	q := wrapper.NewRecoveryQueryWrapper[listProducts, int](nopLogger(t), "ListProducts")(panicking())

	_, err := q.Execute(t.Context(), listProducts{})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
	assert.Equal(t, errx.T_Internal, errx.GetType(err))

	details := errx.AsErrorX(err).Details()
	assert.Equal(t, "boom", details["panic_values"])
	assert.NotEmpty(t, details["stack_trace"])
}

func TestLogger(t *testing.T) {
	log := nopLogger(t)

	got, err := wrapper.NewLoggerQueryWrapper[listProducts, int](log, "CountProducts")(countProducts{}).
		Execute(t.Context(), listProducts{Category: "lamps"})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	failure := errx.New("store down", errx.WithCode("REPOSITORY_FAILURE"))
	_, err = wrapper.NewLoggerQueryWrapper[listProducts, int](log, "CountProducts")(failing(failure)).
		Execute(t.Context(), listProducts{})
	assert.ErrorIs(t, err, failure)

	_, err = wrapper.NewLoggerQueryWrapper[listProducts, int](log, "CountProducts")(panicking()).
		Execute(t.Context(), listProducts{})
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
}

func TestTimeout(t *testing.T) {
	deadlineOf := query.Func[listProducts, time.Duration](
		func(ctx context.Context, _ listProducts) (time.Duration, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				return 0, nil
			}
			return time.Until(deadline), ctx.Err()
		},
	)

	left, err := wrapper.NewTimeoutQueryWrapper[listProducts, time.Duration](time.Minute)(deadlineOf).
		Execute(t.Context(), listProducts{})
	require.NoError(t, err)
	assert.Greater(t, left, 50*time.Second)
	assert.LessOrEqual(t, left, time.Minute)

	left, err = wrapper.NewTimeoutQueryWrapper[listProducts, time.Duration](0)(deadlineOf).
		Execute(context.Background(), listProducts{})
	require.NoError(t, err)
	assert.Zero(t, left, "zero timeout adds no deadline")

	blocked := query.Func[listProducts, int](func(ctx context.Context, _ listProducts) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	_, err = wrapper.NewTimeoutQueryWrapper[listProducts, int](time.Millisecond)(blocked).
		Execute(t.Context(), listProducts{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetaInject(t *testing.T) {
	var seen map[meta.ContextKey]string
	capture := query.Func[listProducts, int](func(ctx context.Context, _ listProducts) (int, error) {
		seen = meta.ExtractMetaFromContext(ctx)
		return 0, nil
	})

	_, err := wrapper.NewMetaInjectQueryWrapper[listProducts, int]("ListProducts")(capture).
		Execute(t.Context(), listProducts{})
	require.NoError(t, err)
	assert.Equal(t, "ListProducts", seen[meta.Operation])
	assert.True(t, strings.HasPrefix(seen[meta.TraceID], "man-"), seen[meta.TraceID])

	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{meta.TraceID: "upstream"})
	_, err = wrapper.NewMetaInjectQueryWrapper[listProducts, int]("ListProducts")(capture).
		Execute(ctx, listProducts{})
	require.NoError(t, err)
	assert.Equal(t, "upstream", seen[meta.TraceID], "existing trace id is kept")
}

func TestChain(t *testing.T) {
	log := nopLogger(t)

	q := query.Wrap[listProducts, int](panicking(),
		wrapper.NewMetaInjectQueryWrapper[listProducts, int]("ListProducts"),
		wrapper.NewTracingQueryWrapper[listProducts, int]("ListProducts"),
		wrapper.NewLoggerQueryWrapper[listProducts, int](log, "ListProducts"),
		wrapper.NewTimeoutQueryWrapper[listProducts, int](time.Second),
	)

	_, err := q.Execute(t.Context(), listProducts{})
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
}

type sentAlert struct {
	code, operation string
	details         map[string]string
}

type recordingProvider struct {
	sent chan sentAlert
}

func (p *recordingProvider) SendError(_ context.Context, code, _, operation string, details map[string]string) error {
	p.sent <- sentAlert{code: code, operation: operation, details: details}
	return nil
}

func TestAlert(t *testing.T) {
	provider := &recordingProvider{sent: make(chan sentAlert, 1)}
	wrap := wrapper.NewAlertQueryWrapper[listProducts, int](nopLogger(t), provider, "ListProducts")

	notFound := errx.New("category not found", errx.WithType(errx.T_NotFound))
	_, err := wrap(failing(notFound)).Execute(t.Context(), listProducts{})
	require.ErrorIs(t, err, notFound)

	storeDown := errx.New("store down", errx.WithCode("REPOSITORY_FAILURE"), errx.WithType(errx.T_Internal))
	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{meta.TraceID: "abc"})
	_, err = wrap(failing(storeDown)).Execute(ctx, listProducts{})
	require.ErrorIs(t, err, storeDown, "error is returned unchanged")

	select {
	case got := <-provider.sent:
		assert.Equal(t, "REPOSITORY_FAILURE", got.code)
		assert.Equal(t, "query: ListProducts", got.operation)
		assert.Equal(t, "abc", got.details["trace_id"])
	case <-time.After(time.Second):
		t.Fatal("alert was not sent")
	}

	assert.Empty(t, provider.sent, "client errors are not reported")
}

type searchProducts struct {
	Category string `json:"category"  validate:"omitempty,oneof=lamps chairs"`
	PageSize int    `json:"page_size" validate:"gte=0,lte=200"`
}

func TestValidation(t *testing.T) {
	calls := 0
	count := query.Func[*searchProducts, int](func(context.Context, *searchProducts) (int, error) {
		calls++
		return 3, nil
	})
	q := wrapper.NewValidationQueryWrapper[*searchProducts, int]()(count)

	got, err := q.Execute(t.Context(), &searchProducts{Category: "lamps"})
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = q.Execute(t.Context(), &searchProducts{Category: "tables", PageSize: 500})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, val.CodeValidationFailed))
	assert.Equal(t, errx.T_Validation, errx.GetType(err))

	fields := errx.AsErrorX(err).Fields()
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "page_size")
	assert.Equal(t, 1, calls, "invalid input never reaches the query")
}
