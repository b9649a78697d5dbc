package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for votectl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - RequestTimeout: upper bound for a single call.
//   - TokenFile: where the access token is kept between invocations.
type Config struct {
	ServerEndpointAddr string        `envconfig:"ADDR"`
	RequestTimeout     time.Duration `envconfig:"TIMEOUT"`
	TokenFile          string        `envconfig:"TOKEN_FILE"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.TokenFile = defaultTokenFile()
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "votectl", "token")
}

// LoadConfig applies defaults, then the file at path (if non-empty), then
// VOTECTL_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
