package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init picks the logger flavour for the given environment name.
func Init(env string) {
	if env == "production" {
		InitLogger()
		return
	}
	InitLoggerDev()
}

// InitLogger initializes the global logger with JSON output
func InitLogger() {
	config := zap.NewProductionConfig()

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	Log = logger.Sugar().Named("marketplace")
}

// InitLoggerDev initializes logger in development mode (more readable output)
func InitLoggerDev() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	Log = logger.Sugar().Named("marketplace")
}

// InitNop discards everything. Tests use it to keep output quiet.
func InitNop() {
	Log = zap.NewNop().Sugar()
}

// Sync flushes buffered logs
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
