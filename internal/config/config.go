package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/straja-ai/prerouter/internal/redact"
)

// Config holds prerouter configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Policy    PolicyConfig    `yaml:"policy"`
	Trace     TraceConfig     `yaml:"trace"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr                string        `yaml:"addr" validate:"required"` // HTTP listen address, e.g. ":8080"
	APIKeys             []string      `yaml:"api_keys,omitempty"`       // empty disables auth on /v1/*
	MaxRequestBodyBytes int64         `yaml:"max_request_body_bytes" validate:"gte=0"`
	ReadHeaderTimeout   time.Duration `yaml:"read_header_timeout" validate:"gte=0"`
	ReadTimeout         time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout        time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

type PolicyConfig struct {
	Terms     []string `yaml:"terms"`
	TermsFile string   `yaml:"terms_file,omitempty"` // one term per line, '#' comments
}

type TraceConfig struct {
	Enabled         bool          `yaml:"enabled"`
	QueueSize       int           `yaml:"queue_size" validate:"gte=0"`
	Workers         int           `yaml:"workers" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	MetricsSchedule string        `yaml:"metrics_schedule,omitempty"` // robfig/cron spec
	Sinks           []SinkConfig  `yaml:"sinks" validate:"dive"`
}

type SinkConfig struct {
	Type    string            `yaml:"type" validate:"required,oneof=log file_jsonl webhook sqlite"`
	Path    string            `yaml:"path,omitempty"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty" validate:"gte=0"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	Protocol    string `yaml:"protocol,omitempty" validate:"omitempty,oneof=grpc http"`
	ServiceName string `yaml:"service_name,omitempty"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Parse decodes YAML bytes on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			MaxRequestBodyBytes: 64 * 1024,
			ReadHeaderTimeout:   5 * time.Second,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
		},
		Policy: PolicyConfig{
			Terms: []string{},
		},
		Trace: TraceConfig{
			Enabled:         true,
			QueueSize:       1000,
			Workers:         1,
			ShutdownTimeout: 2 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "prerouter",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxRequestBodyBytes == 0 {
		cfg.Server.MaxRequestBodyBytes = 64 * 1024
	}

	if cfg.Policy.Terms == nil {
		cfg.Policy.Terms = []string{}
	}

	if cfg.Trace.QueueSize == 0 {
		cfg.Trace.QueueSize = 1000
	}
	if cfg.Trace.Workers == 0 {
		cfg.Trace.Workers = 1
	}
	if cfg.Trace.ShutdownTimeout == 0 {
		cfg.Trace.ShutdownTimeout = 2 * time.Second
	}
	if cfg.Trace.Enabled && len(cfg.Trace.Sinks) == 0 {
		cfg.Trace.Sinks = []SinkConfig{{Type: "log"}}
	}
	for i := range cfg.Trace.Sinks {
		cfg.Trace.Sinks[i].Type = strings.ToLower(strings.TrimSpace(cfg.Trace.Sinks[i].Type))
	}

	cfg.Telemetry.Protocol = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Protocol))
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "prerouter"
	}
}

// PolicyTerms returns the inline terms followed by those read from terms_file.
func (c *Config) PolicyTerms() ([]string, error) {
	terms := append([]string{}, c.Policy.Terms...)
	if c.Policy.TermsFile == "" {
		return terms, nil
	}
	data, err := os.ReadFile(c.Policy.TermsFile)
	if err != nil {
		return nil, fmt.Errorf("read policy.terms_file: %w", err)
	}
	fileTerms, err := parseTermsFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse policy.terms_file: %w", err)
	}
	for _, w := range termWarnings("policy.terms_file", fileTerms) {
		redact.Logf("config: %s", w)
	}
	return append(terms, fileTerms...), nil
}

// parseTermsFile keeps each line verbatim except for the line ending.
// Blank lines and lines starting with '#' are skipped.
func parseTermsFile(data []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	// A single line may span the whole file.
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
