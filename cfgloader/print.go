package cfgloader

import (
	"github.com/rise-and-shine/repokit/mask"
	"github.com/rise-and-shine/repokit/observability/logger"
)

func printConfig(env string, config any) {
	fields := mask.StructToOrdMap(config)

	log := logger.Named("cfgloader").With("environment", env)
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		log = log.With(pair.Key, pair.Value)
	}
	log.Info("config loaded")
}
