package syncer

import (
	"context"

	"github.com/athebyme/offers-service/pkg/interfaces"
)

// nopLogger отбрасывает все записи; используется в тестах
type nopLogger struct{}

func newNopLogger() interfaces.LoggerPort { return nopLogger{} }

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func (nopLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {}
func (nopLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {}

func (l nopLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort { return l }
func (l nopLogger) WithField(key string, value interface{}) interfaces.LoggerPort  { return l }

func (nopLogger) Sync() error { return nil }
