package tracing

import "time"

// Config configures the OTLP exporter. Disabled by default, so local runs and
// tests need no collector.
type Config struct {
	// Disable installs a no-op tracer provider.
	Disable bool `yaml:"disable" default:"true"`

	// SampleRate is the fraction of root traces recorded, in [0, 1].
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"gte=0,lte=1"`

	ExporterHost string `yaml:"exporter_host" validate:"required_if=Disable false"`
	ExporterPort int    `yaml:"exporter_port" validate:"required_if=Disable false"`

	// BatchTimeout is the longest time spans wait before being exported.
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"5s"`
	// MaxQueueSize bounds the spans buffered for export; extra spans are dropped.
	MaxQueueSize int `yaml:"max_queue_size" default:"10000"`

	// Tags are added to the resource of every span.
	Tags map[string]string `yaml:"tags"`
}

const (
	reconnectionPeriod = 30 * time.Second
	shutdownTimeout    = 5 * time.Second
)
