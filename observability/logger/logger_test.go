package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/code19m/errx"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/repokit/meta"
)

func newTestLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	zapConfig, err := Config{Level: levelDebug, Encoding: encPretty}.getZapConfig()
	require.NoError(t, err)

	var buf bytes.Buffer
	return &logger{newPrettyLogger(zapConfig, &buf).Sugar()}, &buf
}

func TestPrettyOutput(t *testing.T) {
	log, buf := newTestLogger(t)

	log.Named("repogen").With("entity", "product", "rows", 3).Info("saved")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INFO repogen: saved")
	assert.Equal(t, "  entity: product", lines[1])
	assert.Equal(t, "  rows: 3", lines[2])
}

func TestErrorx(t *testing.T) {
	log, buf := newTestLogger(t)

	err := errx.New("product not found",
		errx.WithCode("PRODUCT_NOT_FOUND"),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"id": "7"}),
	)
	log.Errorx(err)

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "product not found")
	assert.Contains(t, out, "error_code: PRODUCT_NOT_FOUND")
	assert.Contains(t, out, "error_details:\n    id: 7")
}

func TestWarnxPlainError(t *testing.T) {
	log, buf := newTestLogger(t)

	log.Warnx(assert.AnError)

	assert.Contains(t, buf.String(), "WARN "+assert.AnError.Error())
	assert.NotContains(t, buf.String(), "error_code")
}

func TestWithContext(t *testing.T) {
	log, buf := newTestLogger(t)

	ctx := meta.InjectMetaToContext(t.Context(), map[meta.ContextKey]string{
		meta.TraceID:   "abc",
		meta.Operation: "ListProducts",
	})
	log.WithContext(ctx).Debug("page read")

	out := buf.String()
	assert.Contains(t, out, "DEBUG page read")
	assert.Contains(t, out, "operation: ListProducts")
	assert.Contains(t, out, "trace_id: abc")
	assert.Less(t, strings.Index(out, "operation"), strings.Index(out, "trace_id"), "keys are sorted")

	assert.Same(t, log, log.WithContext(t.Context()))
}

func TestDisabled(t *testing.T) {
	log, err := New(Config{Disable: true})
	require.NoError(t, err)
	log.Info("nothing")
	assert.NoError(t, log.Sync())
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Encoding: encPretty})
	assert.Error(t, err)
}
