package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/prerouter/internal/config"
)

func TestBuildSinks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	specs := []config.SinkConfig{
		{Type: "log"},
		{Type: "file_jsonl", Path: filepath.Join(dir, "records.jsonl")},
		{Type: "sqlite", Path: filepath.Join(dir, "records.db")},
		{Type: "webhook", URL: "https://collector.example.com/trace"},
	}

	sinks, err := buildSinks(ctx, specs)
	require.NoError(t, err)
	require.Len(t, sinks, 4)

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
		require.NoError(t, s.Close(ctx))
	}
	assert.Equal(t, "log", names[0])
	assert.True(t, strings.HasPrefix(names[1], "file_jsonl:"))
	assert.True(t, strings.HasPrefix(names[2], "sqlite:"))
	assert.Equal(t, "webhook:https://collector.example.com/trace", names[3])
}

func TestBuildSinksFailure(t *testing.T) {
	_, err := buildSinks(context.Background(), []config.SinkConfig{
		{Type: "log"},
		{Type: "file_jsonl"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace sink 1 (file_jsonl)")

	_, err = buildSinks(context.Background(), []config.SinkConfig{{Type: "carrier"}})
	assert.ErrorContains(t, err, "unknown sink type")
}
