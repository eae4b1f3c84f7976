// Package observability builds the diagnostic logger.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	// Level is debug, info, warn or error
	Level string

	// Format is console or json
	Format string

	// Color enables colored levels in console format
	Color bool

	Name string
}

// NewLogger creates a logger writing to w.
func NewLogger(cfg LoggerConfig, w io.Writer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	encoder, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)
	logger := zap.New(core, zap.AddStacktrace(zap.DPanicLevel))
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}

func newEncoder(cfg LoggerConfig) (zapcore.Encoder, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if cfg.Color {
			encoderConfig.EncodeLevel = colorLevelEncoder()
		}
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	case "json":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}

// colorLevelEncoder colors levels regardless of color.NoColor, which
// fatih/color derives from stdout rather than the log writer.
func colorLevelEncoder() zapcore.LevelEncoder {
	levelColors := map[zapcore.Level]*color.Color{
		zapcore.DebugLevel: color.New(color.FgMagenta),
		zapcore.InfoLevel:  color.New(color.FgCyan),
		zapcore.WarnLevel:  color.New(color.FgYellow),
		zapcore.ErrorLevel: color.New(color.FgRed),
	}
	for _, c := range levelColors {
		c.EnableColor()
	}

	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := level.CapitalString()
		if c, ok := levelColors[level]; ok {
			text = c.Sprint(text)
		}
		enc.AppendString(text)
	}
}
