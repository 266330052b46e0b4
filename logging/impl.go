package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, appenders: appenders}
}

// message builds the text and fields of an entry once it is known to be logged.
type message func() (string, []zapcore.Field)

func sprint(args []interface{}) message {
	return func() (string, []zapcore.Field) { return fmt.Sprint(args...), nil }
}

func sprintf(template string, args []interface{}) message {
	return func() (string, []zapcore.Field) { return fmt.Sprintf(template, args...), nil }
}

func sprintw(msg string, keysAndValues []interface{}) message {
	return func() (string, []zapcore.Field) { return msg, toFields(keysAndValues) }
}

// toFields pairs up alternating keys and values. A trailing key without a value gets an error value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if stringer, ok := keysAndValues[i].(fmt.Stringer); ok {
			key = stringer.String()
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// callerSkip is the number of frames between getCaller and the code calling the Logger.
const callerSkip = 3

// logAt writes the message to every appender if the level is enabled or force is set.
// It must be called directly from the exported Logger methods for callerSkip to hold.
func (imp *impl) logAt(level Level, force bool, build message) {
	if !force && level < imp.level.Get() {
		return
	}
	msg, fields := build()
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func getCaller() zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(callerSkip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.level.Get(), imp.inUTC, imp.appenders...)
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// AsZap returns a zap logger writing to stdout plus every appender that is itself a zapcore.Core,
// such as the observer used in tests.
func (imp *impl) AsZap() *zap.SugaredLogger {
	cores := []zapcore.Core{zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(imp.level.Get().AsZap()),
	)}
	for _, appender := range imp.appenders {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
		}
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar().Named(imp.name)
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.AsZap().Desugar()
}

func (imp *impl) Debug(args ...interface{}) {
	imp.logAt(DEBUG, false, sprint(args))
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.logAt(DEBUG, false, sprintf(template, args))
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logAt(DEBUG, false, sprintw(msg, keysAndValues))
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	imp.logAt(DEBUG, IsDebugMode(ctx), sprint(args))
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.logAt(DEBUG, IsDebugMode(ctx), sprintf(template, args))
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.logAt(DEBUG, IsDebugMode(ctx), sprintw(msg, keysAndValues))
}

func (imp *impl) Info(args ...interface{}) {
	imp.logAt(INFO, false, sprint(args))
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.logAt(INFO, false, sprintf(template, args))
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logAt(INFO, false, sprintw(msg, keysAndValues))
}

func (imp *impl) Warn(args ...interface{}) {
	imp.logAt(WARN, false, sprint(args))
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.logAt(WARN, false, sprintf(template, args))
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logAt(WARN, false, sprintw(msg, keysAndValues))
}

func (imp *impl) Error(args ...interface{}) {
	imp.logAt(ERROR, false, sprint(args))
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.logAt(ERROR, false, sprintf(template, args))
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logAt(ERROR, false, sprintw(msg, keysAndValues))
}

// Fatal variants always log, as errors, then exit the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.logAt(ERROR, true, sprint(args))
	os.Exit(1)
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.logAt(ERROR, true, sprintf(template, args))
	os.Exit(1)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.logAt(ERROR, true, sprintw(msg, keysAndValues))
	os.Exit(1)
}
