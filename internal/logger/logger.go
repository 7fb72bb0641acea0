package logger

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Rotation settings for the optional file sink, sized for a long-running
// planet split rather than a short-lived CLI invocation.
const (
	rotateMaxSizeMB  = 200
	rotateMaxBackups = 3
	rotateMaxAgeDays = 14
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init initializes the global logger with console output only.
func Init(debug bool) {
	once.Do(func() {
		initLogger(debug, "")
	})
}

// InitWithFile initializes the global logger with both console and
// rotating-file output.
func InitWithFile(debug bool, logFile string) {
	once.Do(func() {
		initLogger(debug, logFile)
	})
}

// initLogger builds the tee'd core: console always, plus a JSON file core
// when logFile is set. Every entry carries a fixed "component" field so
// lines from mapsplit can be told apart in a shared log aggregator.
func initLogger(debug bool, logFile string) {
	var level zapcore.Level
	var encoderConfig zapcore.EncoderConfig

	if debug {
		level = zapcore.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		level = zapcore.InfoLevel
		encoderConfig = zap.NewProductionEncoderConfig()
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if logFile != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    rotateMaxSizeMB,
				MaxBackups: rotateMaxBackups,
				MaxAge:     rotateMaxAgeDays,
			}),
			level,
		)
		cores = append(cores, fileCore)
	}

	log = zap.New(zapcore.NewTee(cores...),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("component", "mapsplit")),
	)
}

// Get returns the global logger, initializing it in non-verbose console
// mode if no command has called Init/InitWithFile yet.
func Get() *zap.Logger {
	if log == nil {
		Init(false)
	}
	return log
}

// Named returns a child of the global logger scoped to one pass, e.g.
// "ingest" or "writeout", so a multi-pass run's log lines can be filtered
// by stage.
func Named(pass string) *zap.Logger {
	return Get().Named(pass)
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		log.Sync()
	}
}
