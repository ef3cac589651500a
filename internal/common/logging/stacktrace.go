package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Stacktrace = "stacktrace"

// Unexported but considered part of the stable interface of pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStacktrace adds err and, if one is recorded anywhere in its chain, the stack trace of err to logger.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// ExtractStack returns the outermost stack trace recorded in the chain of err, or nil.
func ExtractStack(err error) errors.StackTrace {
	var tracer stackTracer
	if errors.As(err, &tracer) {
		return tracer.StackTrace()
	}
	return nil
}
