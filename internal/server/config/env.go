package config

import "github.com/kelseyhightower/envconfig"

// EnvPrefix is prepended to every variable name, e.g. VOTERNET_DATABASE_DSN.
const EnvPrefix = "VOTERNET"

// parseEnv overlays VOTERNET_* environment variables. Unset variables
// leave the current values untouched.
func parseEnv(config *Config) {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
