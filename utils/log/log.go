package log

import (
	"github.com/inconshreveable/log15"
)

// Logger is the leveled key/value logger used across the service.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

var (
	DefaultLogger Logger

	TestLogger = Log15Logger()
)

func init() {
	DefaultLogger = TestLogger
}

func Trace(m string, a ...interface{}) { DefaultLogger.Trace(m, a...) }
func Debug(m string, a ...interface{}) { DefaultLogger.Debug(m, a...) }
func Info(m string, a ...interface{})  { DefaultLogger.Info(m, a...) }
func Warn(m string, a ...interface{})  { DefaultLogger.Warn(m, a...) }
func Crit(m string, a ...interface{})  { DefaultLogger.Crit(m, a...) }
func Error(m string, a ...interface{}) { DefaultLogger.Error(m, a...) }

func SetDefaultLogger(l Logger) {
	DefaultLogger = l
}

// Log15Logger returns a Logger backed by log15.
func Log15Logger(ctx ...interface{}) wrapLog15 {
	return wrapLog15{log15.New(ctx...)}
}

type wrapLog15 struct{ log15.Logger }

func (l wrapLog15) New(ctx ...interface{}) Logger {
	return wrapLog15{l.Logger.New(ctx...)}
}

func (l wrapLog15) Trace(m string, a ...interface{}) {
	l.Logger.Debug(m, a...)
}

func (l wrapLog15) SetLevel(lvl int) {
	l.SetHandler(log15.LvlFilterHandler(log15.Lvl(lvl), l.GetHandler()))
}

// New returns a Logger that includes the contextual args in all output.
func New(ctx ...interface{}) Logger {
	return DefaultLogger.New(ctx...)
}
