package loggingx

import (
	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap returns a logging.Logger that writes to a zap logger.
//
// Log() messages are written at the info level, Debug() messages at the debug
// level.
func Zap(target *zap.Logger) logging.Logger {
	return &zapLogger{
		target: target,
		sugar:  target.Sugar(),
	}
}

type zapLogger struct {
	target *zap.Logger
	sugar  *zap.SugaredLogger
}

func (l *zapLogger) Log(f string, v ...any) {
	l.sugar.Infof(f, v...)
}

func (l *zapLogger) LogString(s string) {
	l.target.Info(s)
}

func (l *zapLogger) Debug(f string, v ...any) {
	l.sugar.Debugf(f, v...)
}

func (l *zapLogger) DebugString(s string) {
	l.target.Debug(s)
}

func (l *zapLogger) IsDebug() bool {
	return l.target.Core().Enabled(zapcore.DebugLevel)
}
