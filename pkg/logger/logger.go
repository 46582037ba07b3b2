package logger

import (
	"io"
	"log/slog"
	"os"

	"gomarketplace/configs"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	defaultLocalLogFile = "logs/cart.log"
	defaultLogFile      = "/var/log/gomarketplace-cart.log"
)

func NewLogger(cfg *configs.Config) *slog.Logger {
	level := slog.LevelDebug
	path := defaultLogFile

	switch cfg.Env {
	case envLocal:
		path = defaultLocalLogFile
	case envDev:
	case envProd:
		level = slog.LevelInfo
	}
	if cfg.LogFile != "" {
		path = cfg.LogFile
	}

	return slog.New(
		slog.NewJSONHandler(newMultiWriter(path), &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})).With("service", "cart", "env", cfg.Env)
}

// NewTestLogger discards everything.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newMultiWriter(path string) io.Writer {
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // MB
		MaxBackups: 3,
	})
}
