package concurrency

import (
	"fmt"

	"go.uber.org/zap"
)

// simpleLogger is a minimal logger interface to avoid import cycles
// This allows concurrency package to log errors without importing core
type simpleLogger interface {
	Errorf(format string, args ...interface{})
}

// newDefaultSimpleLogger uses the process-wide zap logger
func newDefaultSimpleLogger() simpleLogger {
	return zap.L().WithOptions(zap.AddCallerSkip(2)).Sugar()
}

// namedLogger prefixes every line with the executor name
type namedLogger struct {
	name string
	next simpleLogger
}

func (l *namedLogger) Errorf(format string, args ...interface{}) {
	l.next.Errorf("[%s] %s", l.name, fmt.Sprintf(format, args...))
}
