package logging

import (
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level picks the minimum level for the CLI flags. Warnings are always
// shown.
func Level(verbose, debug bool) zapcore.Level {
	switch {
	case debug:
		return zapcore.DebugLevel
	case verbose:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// New returns a console logger on stderr. Output is colored when stderr is
// a terminal.
func New(verbose, debug bool) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    levelEncoder(),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if debug {
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.CallerKey = "caller"
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		Level(verbose, debug),
	)

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if debug {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...)
}

func levelEncoder() zapcore.LevelEncoder {
	if color.NoColor {
		return zapcore.LowercaseLevelEncoder
	}
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		tag := "[" + l.String() + "]"
		switch l {
		case zapcore.DebugLevel:
			tag = color.CyanString(tag)
		case zapcore.InfoLevel:
			tag = color.GreenString(tag)
		case zapcore.WarnLevel:
			tag = color.YellowString(tag)
		default:
			tag = color.RedString(tag)
		}
		enc.AppendString(tag)
	}
}
