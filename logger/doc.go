// Package logger provides structured logging for the cache and sync layers
// using zerolog.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("cachesync").WithComponent("engine")
//	log.Info("stream live", logger.Fields(logger.FieldChannelID, "c1"))
package logger
