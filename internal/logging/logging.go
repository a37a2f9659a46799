// Package logging builds the process logger: logr on top of zap.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to w (stderr when nil) at level ("debug",
// "info", "warn" or "error"). Development selects the console encoder and
// caller annotation; otherwise output is JSON. The returned function flushes
// buffered entries.
//
// logr V(1) maps to zap's debug level, so debug chatter appears only at
// "debug".
func New(w io.Writer, level string, development bool) (logr.Logger, func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}

	var (
		enc  zapcore.Encoder
		opts []zap.Option
	)
	if development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		opts = append(opts, zap.AddCaller(), zap.Development())
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(lvl))
	zl := zap.New(core, opts...)
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}
