package main

import (
	"context"
	"fmt"

	"github.com/straja-ai/prerouter/internal/config"
	"github.com/straja-ai/prerouter/internal/tracelog"
)

// buildSinks opens every configured sink; already opened sinks are closed on failure.
func buildSinks(ctx context.Context, specs []config.SinkConfig) ([]tracelog.Sink, error) {
	sinks := make([]tracelog.Sink, 0, len(specs))
	for i, spec := range specs {
		sink, err := buildSink(ctx, spec)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close(ctx)
			}
			return nil, fmt.Errorf("trace sink %d (%s): %w", i, spec.Type, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func buildSink(ctx context.Context, spec config.SinkConfig) (tracelog.Sink, error) {
	switch spec.Type {
	case "log":
		return tracelog.NewLogSink(), nil
	case "file_jsonl":
		s, err := tracelog.NewFileSink(spec.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "webhook":
		s, err := tracelog.NewWebhookSink(spec.URL, spec.Headers, spec.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := tracelog.NewSQLiteSink(ctx, spec.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", spec.Type)
	}
}
