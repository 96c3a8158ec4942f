// Package log is the logging facade the rest of the codebase logs through.
// It wraps a zap logger behind package-level leveled helpers so call sites
// never carry a logger around unless they want scoped fields.
package log

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.Logger]

func init() {
	l, _ := zap.NewProduction(zap.WithCaller(false))
	global.Store(l)
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *zap.Logger) {
	global.Store(l)
}

// GetLogger returns the process-wide logger.
func GetLogger() *zap.Logger {
	return global.Load()
}

func sugar() *zap.SugaredLogger {
	return global.Load().Sugar()
}

func Debug(args ...any) { sugar().Debug(args...) }
func Info(args ...any)  { sugar().Info(args...) }
func Warn(args ...any)  { sugar().Warn(args...) }
func Error(args ...any) { sugar().Error(args...) }

func Debugf(format string, args ...any) { sugar().Debugf(format, args...) }
func Infof(format string, args ...any)  { sugar().Infof(format, args...) }
func Warnf(format string, args ...any)  { sugar().Warnf(format, args...) }
func Errorf(format string, args ...any) { sugar().Errorf(format, args...) }

// Errorw logs a message with structured key-value pairs.
func Errorw(msg string, keysAndValues ...any) { sugar().Errorw(msg, keysAndValues...) }

// Fatal logs the arguments and exits with code 1.
func Fatal(args ...any) {
	sugar().Error(args...)
	os.Exit(1)
}

// Fatalf logs the formatted message and exits with code 1.
func Fatalf(format string, args ...any) {
	sugar().Errorf(format, args...)
	os.Exit(1)
}

// Helper is a logger scoped with fixed fields, handed to components that
// log many lines under the same context (one worker, one subsystem).
type Helper struct {
	s *zap.SugaredLogger
}

// NewHelper returns a Helper over l with the given structured fields attached.
func NewHelper(l *zap.Logger, keysAndValues ...any) *Helper {
	return &Helper{s: l.Sugar().With(keysAndValues...)}
}

// With returns a copy of the helper with extra fields attached.
func (h *Helper) With(keysAndValues ...any) *Helper {
	return &Helper{s: h.s.With(keysAndValues...)}
}

func (h *Helper) Debugf(format string, args ...any) { h.s.Debugf(format, args...) }
func (h *Helper) Infof(format string, args ...any)  { h.s.Infof(format, args...) }
func (h *Helper) Warnf(format string, args ...any)  { h.s.Warnf(format, args...) }
func (h *Helper) Errorf(format string, args ...any) { h.s.Errorf(format, args...) }
