package redact

import (
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "bearer header",
			input:    "Authorization: Bearer sk-secret-123",
			disallow: []string{"sk-secret-123"},
			require:  []string{"Bearer [REDACTED]"},
		},
		{
			name:     "api keys slice",
			input:    "api_keys=[proj-key-1 proj-key-2]",
			disallow: []string{"proj-key-1", "proj-key-2"},
			require:  []string{"api_keys=[REDACTED]"},
		},
		{
			name:     "webhook header",
			input:    "headers map[X-Api-Key: abc123xyz]",
			disallow: []string{"abc123xyz"},
			require:  []string{"X-Api-Key: [REDACTED]"},
		},
		{
			name:     "webhook url",
			input:    "sink webhook:https://hooks.example.com/services/T000/B000/XXXXsecret failed",
			disallow: []string{"services", "XXXXsecret"},
			require:  []string{"https://hooks.example.com/[REDACTED_PATH]"},
		},
		{
			name:     "mixed token",
			input:    "Bearer abc token=anotherone key=supersecret",
			disallow: []string{"abc", "anotherone", "supersecret"},
			require:  []string{"token=[REDACTED]", "key=[REDACTED]"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want == "" {
					continue
				}
				if !contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}

func TestStringKeepsPlainText(t *testing.T) {
	in := "trace stage=query_preprocess normalized=\"hello world\""
	if got := String(in); got != in {
		t.Fatalf("expected plain text untouched, got %q", got)
	}
	if got := String("see http://localhost:8080"); got != "see http://localhost:8080" {
		t.Fatalf("expected bare host url untouched, got %q", got)
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
