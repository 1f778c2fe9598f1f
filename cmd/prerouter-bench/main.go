package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/straja-ai/prerouter/internal/config"
	"github.com/straja-ai/prerouter/internal/router"
)

func main() {
	cfgPath := flag.String("config", "prerouter.yaml", "path to config yaml")
	n := flag.Int("n", 10000, "number of iterations")
	query := flag.String("query", "  Please   summarise the quarterly report\nand flag anything SECRET  ", "query text to preprocess")
	repeat := flag.Int("repeat", 1, "repeat the query this many times to simulate long inputs")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	terms, err := cfg.PolicyTerms()
	if err != nil {
		log.Fatalf("load policy terms: %v", err)
	}

	// Tracing is left out so only the transforms are measured.
	pipeline := router.NewPipeline(terms, nil)

	q := *query
	if *repeat > 1 {
		q = strings.Repeat(q, *repeat)
	}

	// Warmup
	for i := 0; i < 100; i++ {
		pipeline.Run(q)
	}

	if *n <= 0 {
		*n = 1
	}

	hits := 0
	durations := make([]time.Duration, 0, *n)
	for i := 0; i < *n; i++ {
		start := time.Now()
		if pipeline.Run(q).PolicyKeywordHit {
			hits++
		}
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Nanoseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Nanoseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Nanoseconds()) / 1000.0

	fmt.Printf("bench: n=%d avg_us=%.2f p50_us=%.2f p95_us=%.2f query_bytes=%d terms=%d hits=%d\n",
		len(durations),
		avg,
		p50,
		p95,
		len(q),
		len(terms),
		hits,
	)
}
