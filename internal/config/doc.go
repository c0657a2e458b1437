// Package config handles configuration loading for relay-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and duration parsing.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from RELAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/relay-gateway/config.yaml
//  3. ~/.config/relay-gateway/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${RELAY_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	relay:
//	  max_wait: "5s"
//	  poll_interval: "1s"
//
// # Validation
//
// Validate enforces that a listen surface exists (server.http_addr or
// tailscale), that the four botservice fields are set, and that silent
// sign-in credentials are complete when silentauth.enabled is true. An
// empty database.path disables the audit ledger; an empty
// auth.jwt_secret disables channel authentication.
package config
