package tracelog

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// LogSink writes one log line per record. Field values are written verbatim,
// like the file and sqlite sinks; redact only applies to operational logs.
type LogSink struct {
	logger *log.Logger
}

func NewLogSink() *LogSink { return &LogSink{logger: log.Default()} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, rec Record) error {
	s.logger.Printf("trace stage=%s %s", rec.Stage, formatFields(rec.Fields))
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }

func formatFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s=%q", f.Key, v))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", f.Key, v))
		}
	}
	return strings.Join(parts, " ")
}
