// Package config loads the cachesync process configuration.
//
// Values come from a YAML file, an optional .env file and environment
// variables prefixed with the service name:
//
//	cfg, err := config.Load("cachesync", config.WithConfigFile("cachesync.yml"))
//
// CACHESYNC_SYNC_CATCH_UP_WINDOW=250ms overrides sync.catch_up_window.
package config
