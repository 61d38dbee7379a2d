package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is the structured payload attached to an entry.
type Fields map[string]interface{}

// Log is the process logger.
type Log struct {
	*logrus.Logger
}

// Entry is a log line under construction. Warn and Error feed the run
// counters reported by Summary.
type Entry struct {
	*logrus.Entry
}

const levelEnvVar = "LOG_LEVEL"

var globalLogger = Logger()

// Logger builds a JSON logger at the level named by LOG_LEVEL (info when
// unset or unknown).
func Logger() *Log {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(strings.ToLower(os.Getenv(levelEnvVar)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter("json"))
	l.AddHook(&callerHook{})
	return &Log{Logger: l}
}

// GetLogger returns the process wide logger.
func GetLogger() *Log {
	return globalLogger
}

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.Logger.WithFields(logrus.Fields(fields))}
}

func (l *Log) WithError(err error) *Entry {
	return &Entry{Entry: l.Logger.WithError(err)}
}

// WithRunID tags the entry with the id of the current export run.
func (l *Log) WithRunID(runID string) *Entry {
	return &Entry{Entry: l.Logger.WithField("run_id", runID)}
}

func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField("component", component)}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}

func (e *Entry) Warn(args ...interface{}) {
	recordWarn(e.component())
	e.Entry.Warn(args...)
}

func (e *Entry) Error(args ...interface{}) {
	recordError(e.component())
	e.Entry.Error(args...)
}

func (e *Entry) component() string {
	c, _ := e.Entry.Data["component"].(string)
	return c
}

// prettyCaller shortens the reported caller to "file.go:line".
func prettyCaller(f *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

func newFormatter(format string) logrus.Formatter {
	if format == "text" {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: prettyCaller,
	}
}
