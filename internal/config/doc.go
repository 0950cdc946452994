// Package config handles YAML configuration loading with environment variable substitution.
//
// Sources, in increasing precedence:
//  1. The YAML file, with ${VAR} references expanded from the environment
//  2. MSESYNC_* environment variables (a .env file in the working directory is loaded first)
//  3. Command-line flags applied by cmd/mse-sync
//
// Unset fields take the values in defaults.go.
package config
