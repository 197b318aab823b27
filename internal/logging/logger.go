package logging

import (
	"go.uber.org/zap"
)

// L is the process-wide logger. It is a no-op until Init is called, which keeps
// handler tests quiet.
var L = zap.NewNop()

// Init builds the logger from LOG_FORMAT and LOG_LEVEL and installs it as L.
func Init(level, format string) (*zap.Logger, error) {
	var zapCfg zap.Config

	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	L = logger
	return logger, nil
}
