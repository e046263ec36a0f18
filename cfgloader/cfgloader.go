// Package cfgloader loads and validates the application configuration at startup.
//
// The configuration is read from <dir>/<ENVIRONMENT>.yaml. ${VAR} references in
// the file are expanded from the environment, which is first populated from a
// .env file when one exists. Defaults come from `default` tags and validation
// from `validate` tags (go-playground/validator).
//
//	type Config struct {
//	    DB         pg.Config         `yaml:"db"`
//	    Pagination pagination.Config `yaml:"pagination"`
//	    Logger     logger.Config     `yaml:"logger"`
//	}
//
//	cfg := cfgloader.MustLoad[Config]()
package cfgloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rise-and-shine/repokit/observability/logger"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

// Error codes returned by Load.
const (
	CodeInvalidEnvironment = "CONFIG_INVALID_ENVIRONMENT"
	CodeFileNotFound       = "CONFIG_FILE_NOT_FOUND"
	CodeMalformed          = "CONFIG_MALFORMED"
	CodeInvalid            = "CONFIG_INVALID"
)

//nolint:gochecknoglobals // fixed set of environments
var environments = []string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}

// MustLoad is Load that stops the process when the configuration cannot be loaded.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		logger.Named("cfgloader").Fatalx(err)
	}
	return cfg
}

// Load reads, expands, defaults and validates the configuration of type T.
// Unless WithSilent is given, the loaded configuration is logged with fields
// tagged `mask:"true"` masked.
func Load[T any](opts ...Option) (T, error) {
	var config T

	if reflect.TypeFor[T]().Kind() == reflect.Pointer {
		return config, errx.New("[cfgloader]: config type must not be a pointer", errx.WithCode(CodeMalformed))
	}

	o := newOptions(opts...)

	_ = godotenv.Load(o.envFiles...)

	env := o.environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if !slices.Contains(environments, env) {
		return config, errx.New(
			"[cfgloader]: ENVIRONMENT is not set or invalid",
			errx.WithCode(CodeInvalidEnvironment),
			errx.WithDetails(errx.D{"environment": env, "choices": strings.Join(environments, ", ")}),
		)
	}

	path := filepath.Join(o.configDir, env+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, errx.New(
			"[cfgloader]: config file not found",
			errx.WithCode(CodeFileNotFound),
			errx.WithDetails(errx.D{"path": path}),
		)
	}
	if err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeMalformed), errx.WithDetails(errx.D{"path": path}))
	}

	if err = defaults.Set(&config); err != nil {
		return config, errx.Wrap(err, errx.WithCode(CodeMalformed))
	}

	if err = validate(&config); err != nil {
		return config, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	if !o.silent {
		printConfig(env, config)
	}

	return config, nil
}

func validate(config any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errx.Wrap(err, errx.WithCode(CodeInvalid))
	}

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields = append(fields, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}

	return errx.New(
		"[cfgloader]: invalid config fields",
		errx.WithCode(CodeInvalid),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"fields": strings.Join(fields, ", ")}),
	)
}
