package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Levels are ordered by verbosity, a logger prints messages at or below its level.
const (
	LogLevelError = 0
	LogLevelWarn  = 1
	LogLevelInfo  = 2
	LogLevelDebug = 3
)

type logger struct {
	prefix      string
	innerLogger *log.Logger
	level       int
}

func GetLogger(prefix string, level int) Logger {
	return New(os.Stdout, prefix, level)
}

func New(w io.Writer, prefix string, level int) Logger {
	return &logger{
		prefix:      prefix,
		innerLogger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		level:       level,
	}
}

// ParseLevel maps a level name from the configuration file to a level.
// Unknown names fall back to info.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (l *logger) Info(message string, v ...interface{}) {
	if l.level < LogLevelInfo {
		return
	}

	l.log(fmt.Sprintf("[INFO] %v", message), v...)
}

func (l *logger) Warn(message string, v ...interface{}) {
	if l.level < LogLevelWarn {
		return
	}

	l.log(fmt.Sprintf("[WARN] %v", message), v...)
}

func (l *logger) Error(message string, v ...interface{}) {
	l.log(fmt.Sprintf("[ERROR] %v", message), v...)
}

func (l *logger) Debug(message string, v ...interface{}) {
	if l.level < LogLevelDebug {
		return
	}

	l.log(fmt.Sprintf("[DEBUG] %v", message), v...)
}

// WithPrefix returns a logger sharing the output and level with a different prefix.
func (l *logger) WithPrefix(prefix string) Logger {
	return &logger{
		prefix:      prefix,
		innerLogger: l.innerLogger,
		level:       l.level,
	}
}

func (l *logger) log(message string, v ...interface{}) {
	l.innerLogger.Printf("%v %v\n", l.prefix, fmt.Sprintf(message, v...))
}

func (l *logger) GetWriter() io.Writer {
	return l.innerLogger.Writer()
}
