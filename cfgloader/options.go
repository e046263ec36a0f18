package cfgloader

const defaultConfigDir = "./config"

type options struct {
	configDir   string
	environment string
	envFiles    []string
	silent      bool
}

// Option configures Load and MustLoad.
type Option func(*options)

func newOptions(opts ...Option) options {
	o := options{configDir: defaultConfigDir}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSilent disables logging of the loaded config.
func WithSilent() Option {
	return func(o *options) {
		o.silent = true
	}
}

// WithConfigDir reads the YAML files from dir instead of ./config.
func WithConfigDir(dir string) Option {
	return func(o *options) {
		o.configDir = dir
	}
}

// WithEnvironment overrides the ENVIRONMENT variable.
func WithEnvironment(env string) Option {
	return func(o *options) {
		o.environment = env
	}
}

// WithEnvFiles loads the given dotenv files instead of .env.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.envFiles = files
	}
}
