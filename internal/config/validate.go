package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/straja-ai/prerouter/internal/redact"
	"github.com/straja-ai/prerouter/internal/router"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report YAML paths (server.addr) instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		return translateValidationError(err)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	for i, key := range cfg.Server.APIKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("server.api_keys[%d] is empty", i)
		}
	}

	if err := validateTraceConfig(cfg.Trace); err != nil {
		return err
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	for _, w := range termWarnings("policy.terms", cfg.Policy.Terms) {
		redact.Logf("config: %s", w)
	}

	return nil
}

// termWarnings flags terms that are accepted but behave surprisingly:
// empty terms match everything, and terms that cannot survive whitespace
// normalization never match.
func termWarnings(source string, terms []string) []string {
	var out []string
	for i, term := range terms {
		switch {
		case term == "":
			out = append(out, fmt.Sprintf("%s[%d] is empty and will match every query", source, i))
		case !router.MatchesNormalized(term):
			out = append(out, fmt.Sprintf("%s[%d] %q contains a whitespace run or non-space whitespace and can never match a normalized query", source, i, term))
		}
	}
	return out
}

func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Namespace()
	// Drop the root type name.
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s must be set", field)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Errorf("%s must be >= %s", field, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", field, fe.Tag())
	}
}

func validateTraceConfig(t TraceConfig) error {
	for i, s := range t.Sinks {
		switch s.Type {
		case "log":
		case "file_jsonl", "sqlite":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("trace sink %d (%s) missing path", i, s.Type)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("trace sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("trace sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("trace sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("trace sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	return nil
}
