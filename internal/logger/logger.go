// Package logger provides leveled logging in either prefixed text lines or JSON objects.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var slogLevels = map[Level]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
}

// Logger provides leveled logging. Exactly one of text and json is set.
type Logger struct {
	level Level
	text  *log.Logger
	json  *slog.Logger
}

var defaultLogger *Logger

// ParseLevel maps a configured level name to a Level, defaulting to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init initializes the default logger on stderr with the specified level and format.
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter initializes the default logger writing to w.
func InitWithWriter(w io.Writer, level string, format string) {
	l := ParseLevel(level)

	if strings.ToLower(format) == "json" {
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevels[l]})
		defaultLogger = &Logger{level: l, json: slog.New(h)}
		return
	}

	defaultLogger = &Logger{
		level: l,
		text:  log.New(w, "", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
	}
}

func output(l Level, tag string, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > l {
		return
	}
	if defaultLogger.json != nil {
		defaultLogger.json.Log(context.Background(), slogLevels[l], fmt.Sprintf(format, args...))
		return
	}
	// skip output and the exported wrapper
	_ = defaultLogger.text.Output(3, fmt.Sprintf("["+tag+"] "+format, args...))
}

func Debug(format string, args ...interface{}) {
	output(DebugLevel, "DEBUG", format, args...)
}

func Info(format string, args ...interface{}) {
	output(InfoLevel, "INFO", format, args...)
}

func Warn(format string, args ...interface{}) {
	output(WarnLevel, "WARN", format, args...)
}

func Error(format string, args ...interface{}) {
	output(ErrorLevel, "ERROR", format, args...)
}

func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil && defaultLogger.json != nil {
		defaultLogger.json.Error(fmt.Sprintf(format, args...), "fatal", true)
	} else if defaultLogger != nil {
		_ = defaultLogger.text.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	}
	os.Exit(1)
}
