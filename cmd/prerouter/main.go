package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straja-ai/prerouter/internal/auth"
	"github.com/straja-ai/prerouter/internal/config"
	"github.com/straja-ai/prerouter/internal/redact"
	"github.com/straja-ai/prerouter/internal/router"
	"github.com/straja-ai/prerouter/internal/server"
	"github.com/straja-ai/prerouter/internal/telemetry"
	"github.com/straja-ai/prerouter/internal/tracelog"
)

var version = "dev"

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "prerouter.yaml", "Path to prerouter config file")
	printSchema := flag.Bool("print-schema", false, "Print the config JSON Schema and exit")
	flag.Parse()

	if *printSchema {
		out, err := config.Schema()
		if err != nil {
			redact.Fatalf("schema: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		redact.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		redact.Fatalf("invalid config: %v", err)
	}

	terms, err := cfg.PolicyTerms()
	if err != nil {
		redact.Fatalf("failed to load policy terms: %v", err)
	}

	authz, err := auth.NewFromConfig(cfg)
	if err != nil {
		redact.Fatalf("failed to build auth: %v", err)
	}

	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.ServiceName,
		Version:  version,
	})
	if err != nil {
		redact.Fatalf("failed to init telemetry: %v", err)
	}

	var (
		emitter  *tracelog.Emitter
		reporter *tracelog.MetricsReporter
		loggers  []tracelog.Logger
	)
	if cfg.Trace.Enabled {
		sinks, err := buildSinks(ctx, cfg.Trace.Sinks)
		if err != nil {
			redact.Fatalf("failed to build trace sinks: %v", err)
		}
		emitter = tracelog.NewEmitter(tracelog.EmitterConfig{
			QueueSize:       cfg.Trace.QueueSize,
			Workers:         cfg.Trace.Workers,
			ShutdownTimeout: cfg.Trace.ShutdownTimeout,
		}, sinks)
		loggers = append(loggers, emitter)

		if cfg.Trace.MetricsSchedule != "" {
			reporter, err = tracelog.NewMetricsReporter(cfg.Trace.MetricsSchedule, emitter)
			if err != nil {
				redact.Fatalf("failed to schedule trace metrics: %v", err)
			}
			reporter.Start()
		}
	}
	if tel.Enabled {
		loggers = append(loggers, telemetry.NewSpanLogger(tel))
	}

	pipeline := router.NewPipeline(terms, tracelog.Multi(loggers...))

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	srv := server.New(cfg, authz, pipeline, emitter)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			redact.Fatalf("server error: %v", err)
		}
	case sig := <-sigCh:
		redact.Logf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		redact.Logf("http shutdown: %v", err)
	}
	if reporter != nil {
		reporter.Stop(shutdownCtx)
	}
	emitter.Close(shutdownCtx)
	tel.Shutdown(shutdownCtx)
}
