package logging

import "github.com/rs/zerolog"

// InternalLogger is the printf-style logger handed to background jobs such as
// the certificate refresh tick. Output can go to zerolog and the task log ring
// at the same time.
type InternalLogger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

var _ InternalLogger = ZLogger{}

// ZLogger forwards to a zerolog logger.
type ZLogger struct {
	ZLog zerolog.Logger
}

func NewZLogger(zlog zerolog.Logger) ZLogger {
	return ZLogger{ZLog: zlog}
}

func (l ZLogger) Debug(format string, args ...any) { l.emit(zerolog.DebugLevel, format, args) }
func (l ZLogger) Info(format string, args ...any)  { l.emit(zerolog.InfoLevel, format, args) }
func (l ZLogger) Warn(format string, args ...any)  { l.emit(zerolog.WarnLevel, format, args) }
func (l ZLogger) Error(format string, args ...any) { l.emit(zerolog.ErrorLevel, format, args) }

func (l ZLogger) emit(level zerolog.Level, format string, args []any) {
	l.ZLog.WithLevel(level).Msgf(format, args...)
}

var _ InternalLogger = MultiLogger{}

// MultiLogger writes every message to all of its loggers in order.
type MultiLogger []InternalLogger

func NewMultiLogger(loggers ...InternalLogger) MultiLogger {
	return MultiLogger(loggers)
}

func (m MultiLogger) Debug(format string, args ...any) {
	for _, l := range m {
		l.Debug(format, args...)
	}
}

func (m MultiLogger) Info(format string, args ...any) {
	for _, l := range m {
		l.Info(format, args...)
	}
}

func (m MultiLogger) Warn(format string, args ...any) {
	for _, l := range m {
		l.Warn(format, args...)
	}
}

func (m MultiLogger) Error(format string, args ...any) {
	for _, l := range m {
		l.Error(format, args...)
	}
}
