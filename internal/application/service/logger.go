package service

import "github.com/garyjia/claimflow/internal/domain/apperr"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// logFailure logs caller mistakes at info and infrastructure faults at error
func logFailure(l Logger, msg string, err error, keysAndValues ...interface{}) {
	kv := append(keysAndValues, "error", err)
	if apperr.IsCallerError(err) {
		l.Info(msg, kv...)
		return
	}
	l.Error(msg, kv...)
}
