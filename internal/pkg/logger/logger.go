// Package logger wraps logrus with the structured helpers the services use:
// key/value variadics, per-collaborator call logging and workflow events.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields = logrus.Fields

type LogConfig struct {
	Level  string
	Format string
	Output string

	// Rotation settings, used when Output is a file path.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Logger struct {
	log *logrus.Logger
}

// New builds a logger from config. Output is "stdout", "stderr" or a file
// path; file output rotates via lumberjack.
func New(cfg LogConfig) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json", "":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var out io.Writer
	switch cfg.Output {
	case "stdout", "":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		maxSize := cfg.MaxSizeMB
		if maxSize == 0 {
			maxSize = 100
		}
		out = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	log.SetOutput(out)

	return &Logger{log: log}, nil
}

// kvFields turns trailing "key, value, key, value" arguments into fields.
// A dangling key is kept under "extra" rather than dropped.
func kvFields(keysAndValues []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 != 0 {
		fields["extra"] = keysAndValues[len(keysAndValues)-1]
	}
	return fields
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(kvFields(keysAndValues)).Info(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log.WithFields(kvFields(keysAndValues)).Warn(msg)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log.WithFields(kvFields(keysAndValues)).Error(msg)
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.log.WithError(err)
}

func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.log.WithFields(fields)
}

// LogService records one collaborator call with its duration and outcome.
func (l *Logger) LogService(service, operation string, duration time.Duration, data map[string]any, err error) {
	entry := l.log.WithFields(logrus.Fields{
		"service":     service,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})
	if len(data) > 0 {
		entry = entry.WithFields(logrus.Fields(data))
	}
	if err != nil {
		entry.WithError(err).Error("service call failed")
		return
	}
	entry.Debug("service call completed")
}

// LogStage records one pipeline stage of a workflow invocation.
func (l *Logger) LogStage(workflowID, stage string, duration time.Duration, data map[string]any, err error) {
	entry := l.log.WithFields(logrus.Fields{
		"workflow_id": workflowID,
		"stage":       stage,
		"duration_ms": duration.Milliseconds(),
	})
	if len(data) > 0 {
		entry = entry.WithFields(logrus.Fields(data))
	}
	if err != nil {
		entry.WithError(err).Error("stage failed")
		return
	}
	entry.Info("stage completed")
}

// LogWorkflow records a workflow-level event (started, completed, failed).
func (l *Logger) LogWorkflow(workflowID, sessionID, event string, duration time.Duration, err error) {
	entry := l.log.WithFields(logrus.Fields{
		"workflow_id": workflowID,
		"session_id":  sessionID,
		"event":       event,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("workflow event")
		return
	}
	entry.Info("workflow event")
}
