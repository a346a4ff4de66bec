package utils

import (
	"github.com/sirupsen/logrus"
)

// ExtendedLogger is the logging interface injected into every component.
// Concrete implementations live in pkg/logger; components never depend on
// logrus directly except for the structured-field types.
type ExtendedLogger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
	WithError(err error) *logrus.Entry
}
