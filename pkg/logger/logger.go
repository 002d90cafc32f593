package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel parses a level name such as "info" or "debug"
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("invalid log level: %s", s)
}

// Role is the part an account plays in a scenario
type Role int

const (
	None Role = iota
	Master
	Issuer
	Trader
	Registrar
	User
	Sudo
	Sender
)

var rolePrefixes = map[Role]string{
	None:      "",
	Master:    "[MASTER]    ",
	Issuer:    "[ISSUER]    ",
	Trader:    "[TRADER]    ",
	Registrar: "[REGISTRAR] ",
	User:      "[USER]      ",
	Sudo:      "[SUDO]      ",
	Sender:    "[SENDER]    ",
}

var colors = map[Role]color.Attribute{
	None:      color.FgWhite,
	Master:    color.FgHiGreen,
	Issuer:    color.FgYellow,
	Trader:    color.FgMagenta,
	Registrar: color.FgHiBlue,
	User:      color.FgCyan,
	Sudo:      color.FgRed,
	Sender:    color.FgBlue,
}

func (r Role) String() string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(rolePrefixes[r]), "[]"))
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithRole(role Role, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithRole(role Role, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithRole(role Role, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithRole(role Role, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) InfoWithRole(_ Role, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) ErrorWithRole(_ Role, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) DebugWithRole(_ Role, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                 {}
func (l *EmptyLogger) NoticeWithRole(_ Role, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	out            *log.Logger
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
		out:            log.Default(),
	}
}

// SetOutput redirects log output, mainly for tests
func (l *StdLogger) SetOutput(out *log.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
}

// formatMessage formats the log message with the appropriate log level, role prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, role Role, format string) string {
	rolePrefix := rolePrefixes[role]
	if l.enableColoring {
		rolePrefix = color.New(colors[role]).Sprint(rolePrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + rolePrefix + format
}

func (l *StdLogger) logf(level Level, role Role, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		l.out.Printf(l.formatMessage(level, role, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, None, format, args...)
}

func (l *StdLogger) InfoWithRole(role Role, format string, args ...interface{}) {
	l.logf(InfoLevel, role, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, None, format, args...)
}

func (l *StdLogger) ErrorWithRole(role Role, format string, args ...interface{}) {
	l.logf(ErrorLevel, role, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, None, format, args...)
}

func (l *StdLogger) DebugWithRole(role Role, format string, args ...interface{}) {
	l.logf(DebugLevel, role, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, None, format, args...)
}

func (l *StdLogger) NoticeWithRole(role Role, format string, args ...interface{}) {
	l.logf(NoticeLevel, role, format, args...)
}
