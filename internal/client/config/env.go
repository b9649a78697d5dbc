package config

import "github.com/kelseyhightower/envconfig"

// EnvPrefix is prepended to every variable name, e.g. VOTECTL_ADDR.
const EnvPrefix = "VOTECTL"

func parseEnv(cfg *Config) error {
	return envconfig.Process(EnvPrefix, cfg)
}
