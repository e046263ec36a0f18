package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // static palette shared by all encoders
var (
	levelColors = map[zapcore.Level]*color.Color{
		zapcore.DebugLevel:  color.New(color.FgCyan, color.Bold),
		zapcore.InfoLevel:   color.New(color.FgGreen, color.Bold),
		zapcore.WarnLevel:   color.New(color.FgYellow, color.Bold),
		zapcore.ErrorLevel:  color.New(color.FgRed, color.Bold),
		zapcore.DPanicLevel: color.New(color.FgRed, color.Bold),
		zapcore.PanicLevel:  color.New(color.FgRed, color.Bold),
		zapcore.FatalLevel:  color.New(color.FgMagenta, color.Bold),
	}
	faint    = color.New(color.Faint)
	keyColor = color.New(color.FgHiCyan)
)

// prettyEncoder renders entries as a one-line header followed by the fields,
// one per line, in the order they were added. Nested objects are indented.
type prettyEncoder struct {
	zapcore.Encoder

	pool buffer.Pool
}

func newPrettyEncoder(cfg zapcore.EncoderConfig) *prettyEncoder {
	return &prettyEncoder{Encoder: zapcore.NewJSONEncoder(cfg), pool: buffer.NewPool()}
}

func newPrettyLogger(cfg *zap.Config, out io.Writer) *zap.Logger {
	core := zapcore.NewCore(newPrettyEncoder(cfg.EncoderConfig), zapcore.AddSync(out), cfg.Level)
	return zap.New(core)
}

func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	raw, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer raw.Free()

	out := e.pool.Get()

	payload, err := decodeOrdered(raw.Bytes())
	if err != nil {
		out.AppendString(raw.String())
		return out, nil //nolint:nilerr // fall back to the JSON line
	}

	writeHeader(out, entry)
	for pair := payload.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case messageKey, levelKey, timeKey, nameKey:
			continue
		}
		writeField(out, pair.Key, pair.Value, 1)
	}
	return out, nil
}

func writeHeader(out *buffer.Buffer, entry zapcore.Entry) {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	level := entry.Level.CapitalString()
	if c, ok := levelColors[entry.Level]; ok {
		level = c.Sprint(level)
	}

	out.AppendString(faint.Sprint(ts.Format(time.DateTime)))
	out.AppendByte(' ')
	out.AppendString(level)
	if entry.LoggerName != "" {
		out.AppendString(" " + faint.Sprint(entry.LoggerName+":"))
	}
	if entry.Message != "" {
		out.AppendString(" " + entry.Message)
	}
	out.AppendByte('\n')
}

func writeField(out *buffer.Buffer, key string, value any, depth int) {
	indent := strings.Repeat("  ", depth)
	out.AppendString(indent + keyColor.Sprint(key) + ":")

	if nested, ok := value.(*orderedmap.OrderedMap[string, any]); ok && nested.Len() > 0 {
		out.AppendByte('\n')
		for pair := nested.Oldest(); pair != nil; pair = pair.Next() {
			writeField(out, pair.Key, pair.Value, depth+1)
		}
		return
	}

	out.AppendByte(' ')
	if s, ok := value.(string); ok {
		out.AppendString(s)
	} else {
		b, err := json.Marshal(value)
		if err != nil {
			out.AppendString("<unprintable>")
		} else {
			out.Write(b) //nolint:errcheck // buffer writes do not fail
		}
	}
	out.AppendByte('\n')
}

// decodeOrdered decodes a JSON object keeping the key order, recursively.
func decodeOrdered(data []byte) (*orderedmap.OrderedMap[string, any], error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a json object")
	}
	return decodeObject(dec)
}

func decodeObject(dec *json.Decoder) (*orderedmap.OrderedMap[string, any], error) {
	om := orderedmap.New[string, any]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		om.Set(key, value)
	}
	_, err := dec.Token()
	return om, err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if d == '{' {
		return decodeObject(dec)
	}

	var arr []any
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	_, err = dec.Token()
	return arr, err
}
