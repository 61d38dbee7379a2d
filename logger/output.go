package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// maxLogFileMB is the size at which a rotated log file is rolled over.
const maxLogFileMB = 100

// Configure applies the logging section of the configuration. LOG_LEVEL, when
// set, wins over level. output is "stdout", "stderr" or a file path; files
// are rotated by lumberjack when maxAge (days) is positive.
func (l *Log) Configure(level, format, output string, maxAge int) error {
	if env := os.Getenv(levelEnvVar); env != "" {
		level = env
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s'", level)
	}

	if format != "json" && format != "text" {
		return fmt.Errorf("invalid log format '%s'", format)
	}

	out, err := openOutput(output, maxAge)
	if err != nil {
		return err
	}

	l.SetLevel(lvl)
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(format))
	l.SetOutput(out)
	return nil
}

func openOutput(output string, maxAge int) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if maxAge > 0 {
		return &lumberjack.Logger{
			Filename: output,
			MaxAge:   maxAge,
			MaxSize:  maxLogFileMB,
			Compress: true,
		}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", output, err)
	}
	return f, nil
}
