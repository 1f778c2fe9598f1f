package telemetry

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

// Query text never leaves the process as a span attribute.
var denyKeys = []string{
	"original",
	"normalized",
	"query",
	"prompt",
	"content",
	"authorization",
	"api_key",
	"token",
}

// SafeAttributes filters out unsafe keys/values and returns OTEL attributes.
func SafeAttributes(fields []tracelog.Field) []attribute.KeyValue {
	if len(fields) == 0 {
		return nil
	}
	var attrs []attribute.KeyValue
	for _, f := range fields {
		if isDenied(f.Key) {
			continue
		}
		switch val := f.Value.(type) {
		case string:
			if len(val) > 512 {
				continue
			}
			attrs = append(attrs, attribute.String(f.Key, val))
		case bool:
			attrs = append(attrs, attribute.Bool(f.Key, val))
		case int:
			attrs = append(attrs, attribute.Int(f.Key, val))
		case int64:
			attrs = append(attrs, attribute.Int64(f.Key, val))
		case float64:
			attrs = append(attrs, attribute.Float64(f.Key, val))
		case []string:
			attrs = append(attrs, attribute.StringSlice(f.Key, truncateStrings(val, 32)))
		default:
			// unsupported types ignored for safety
		}
	}
	return attrs
}

func isDenied(key string) bool {
	lk := strings.ToLower(key)
	for _, bad := range denyKeys {
		if strings.Contains(lk, bad) {
			return true
		}
	}
	return false
}

func truncateStrings(in []string, limit int) []string {
	if len(in) <= limit {
		return in
	}
	return in[:limit]
}
