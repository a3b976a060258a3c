package utils

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverFromPanic recovers from panics and logs them
func RecoverFromPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"context": context,
			"panic":   r,
			"stack":   string(debug.Stack()),
		}).Error("Panic recovered")
	}
}

// SafeGo runs a goroutine with panic recovery and returns a channel closed when fn returns
func SafeGo(logger logrus.FieldLogger, context string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer RecoverFromPanic(logger, context)
		fn()
	}()
	return done
}
