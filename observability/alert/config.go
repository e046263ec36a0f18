package alert

import "time"

// Config defines how failures are reported to the Sentinel service.
type Config struct {
	// Disable turns alerting off. Nothing is dialed and SendError is a no-op.
	Disable bool `yaml:"disable" default:"true"`

	// SentinelHost is the hostname or IP address of the Sentinel service.
	SentinelHost string `yaml:"sentinel_host" validate:"required_if=Disable false"`

	// SentinelPort is the port number of the Sentinel service.
	SentinelPort int `yaml:"sentinel_port" validate:"required_if=Disable false"`

	// SendTimeout bounds one SendError call.
	SendTimeout time.Duration `yaml:"send_timeout" default:"3s"`
}
