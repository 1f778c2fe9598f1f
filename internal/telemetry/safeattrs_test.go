package telemetry

import (
	"testing"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

func TestSafeAttributesFiltersSecrets(t *testing.T) {
	fields := []tracelog.Field{
		tracelog.F("original", "  raw query "),
		tracelog.F("normalized", "raw query"),
		tracelog.F("prompt", "should drop"),
		tracelog.F("api_key", "sk-123"),
		tracelog.F("authorization", "secret"),
		tracelog.F("policy_keyword_hit", true),
		tracelog.F("long_string", string(make([]byte, 600))),
		tracelog.F("short_string", "fine"),
		tracelog.F("unsupported", struct{}{}),
	}

	attrs := SafeAttributes(fields)
	keys := map[string]bool{}
	for _, a := range attrs {
		keys[string(a.Key)] = true
	}
	for _, bad := range []string{"original", "normalized", "prompt", "api_key", "authorization", "long_string", "unsupported"} {
		if keys[bad] {
			t.Fatalf("unexpected attribute %s", bad)
		}
	}
	if !keys["policy_keyword_hit"] || !keys["short_string"] {
		t.Fatalf("expected safe attributes to survive, got %v", keys)
	}
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestSafeAttributesEmpty(t *testing.T) {
	if attrs := SafeAttributes(nil); attrs != nil {
		t.Fatalf("expected nil for no fields, got %v", attrs)
	}
}
