package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger implementation and its sink.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json (slog) or zap
	// File, when set, receives all log output through a rotating writer
	// instead of stderr.
	File string
}

// New builds a Logger from opts. The returned closer flushes and releases
// the sink and is always non-nil.
func New(opts Options) (Logger, func()) {
	var w io.Writer = os.Stderr
	closer := func() {}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = rotator
		closer = func() { _ = rotator.Close() }
	}

	switch strings.ToLower(opts.Format) {
	case "zap":
		var lvl zapcore.Level
		if err := lvl.Set(opts.Level); err != nil {
			lvl = zapcore.InfoLevel
		}
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.TimeKey = "ts"
		core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), lvl)
		zl := NewZapLogger(zap.New(core))
		prev := closer
		return zl, func() { _ = zl.Sync(); prev() }
	default:
		return NewSlog(w, strings.ToLower(opts.Format), opts.Level), closer
	}
}
