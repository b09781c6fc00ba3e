// Package config loads declarative client configuration from a YAML file
// with environment-variable overrides (RPCMESH_ prefix, double underscore
// for nesting) and turns the retry and logging sections into ready-to-use
// strategy and logger instances.
package config
