package logger

import (
	"go.uber.org/zap"
)

var log = zap.NewNop()

// Init replaces the no-op default with the production JSON logger.
// Must be called once at process start; tests keep the no-op logger.
func Init() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log = l
	log.Info("logger initialized")
}

func Info(msg string, fields map[string]any) {
	log.Info(msg, toZap(fields)...)
}

func Warn(msg string, fields map[string]any) {
	log.Warn(msg, toZap(fields)...)
}

func Error(msg string, fields map[string]any) {
	log.Error(msg, toZap(fields)...)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields map[string]any) {
	log.Fatal(msg, toZap(fields)...)
}

func toZap(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
