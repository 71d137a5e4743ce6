package config

import (
	"github.com/MonkyMars/gecho"
)

var logger gecho.Logger

// InitializeLogger builds the process-wide logger at the level implied by
// the environment (debug outside production).
func InitializeLogger() *gecho.Logger {
	logger = *gecho.NewLogger(gecho.NewConfig(
		gecho.WithLogLevel(gecho.ParseLogLevel(GetLogLevel())),
		gecho.WithShowCaller(true),
	))
	return &logger
}

func GetLogger() *gecho.Logger {
	return &logger
}
