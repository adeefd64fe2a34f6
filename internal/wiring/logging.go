package wiring

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingExtension logs every component resolution, grounded on
// extensions/logging.go's Wrap-based timing log — swapped from
// fmt.Printf to logrus per the ambient logging stack.
type LoggingExtension struct {
	BaseExtension
	log *logrus.Logger
}

// NewLoggingExtension creates a logging extension over log.
func NewLoggingExtension(log *logrus.Logger) *LoggingExtension {
	return &LoggingExtension{BaseExtension: NewBaseExtension("logging"), log: log}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	start := time.Now()
	result, err := next()
	fields := logrus.Fields{"component": op.Component, "duration": time.Since(start).String()}
	if err != nil {
		e.log.WithFields(fields).WithError(err).Error("component resolution failed")
	} else {
		e.log.WithFields(fields).Debug("component resolved")
	}
	return result, err
}

func (e *LoggingExtension) OnError(err error, op *Operation) {
	e.log.WithField("component", op.Component).WithError(err).Error("wiring error")
}
