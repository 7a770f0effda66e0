package store

import (
	"fmt"
	"log"
	"os"
)

// Level is a logger verbosity threshold, ordered low to high.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a small leveled logger, adapted from the teacher's
// rpc/common/logger.go formatting without the dragonboat ILogger coupling
// that belongs to a replication layer this library doesn't have. Rebalance
// and GCRedirects use it to report maintenance-operation lifecycle events;
// nothing on the Put/Get/Contains/Remove hot path logs anything.
type Logger struct {
	name   string
	level  Level
	logger *log.Logger
}

// NewLogger creates a Logger that writes to stderr with the standard
// date/time prefix, at the given minimum level.
func NewLogger(name string, level Level) *Logger {
	return &Logger{
		name:   name,
		level:  level,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", level.String(), l.name, message)
}
