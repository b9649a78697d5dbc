// Package config loads runtime configuration for the votectl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file given with --config.
//  3. VOTECTL_ADDR, VOTECTL_TIMEOUT and VOTECTL_TOKEN_FILE.
//
// Command-line flags are applied on top by the CLI itself.
//
// # File schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s",
//	  "token_file": "/home/me/.config/votectl/token"
//	}
package config
