// Package logging builds the zap.Logger every role process constructs
// once at startup and threads into its constructors, selecting cores
// from the three contractual environment variables.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options mirrors the LOG_TO_CONSOLE/LOG_TO_FILE/LOG_LEVEL environment
// contract.
type Options struct {
	ToConsole bool
	ToFile    bool
	Level     string // trace, debug, info, warn, err, crit, off (case-insensitive)
	Role      string // used in the log file name and as a logger field
	LogsDir   string // default "logs"
}

// New builds a zap.Logger combining a console core, a file core, or
// both via zapcore.NewTee, at the level named by opts.Level. "off"
// disables logging entirely (a silent no-op core).
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if level == levelOff {
		return zap.NewNop(), nil
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core

	if opts.ToConsole {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level))
	}

	if opts.ToFile {
		dir := opts.LogsDir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", opts.Role, os.Getpid()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		jsonEncoder := zapcore.NewJSONEncoder(encoderCfg)
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(f), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core).With(zap.String("role", opts.Role)), nil
}

const levelOff = zapcore.Level(100)

func parseLevel(raw string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "err", "error":
		return zapcore.ErrorLevel, nil
	case "crit", "critical":
		return zapcore.DPanicLevel, nil
	case "off":
		return levelOff, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unrecognized log level %q", raw)
	}
}
