package tracelog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/straja-ai/prerouter/internal/redact"
)

// MetricsReporter periodically logs emitter delivery counters.
type MetricsReporter struct {
	cron    *cron.Cron
	emitter *Emitter
	logf    func(format string, args ...interface{})
}

// NewMetricsReporter schedules a report on the given cron spec ("@every 1m", "*/5 * * * *").
func NewMetricsReporter(schedule string, em *Emitter) (*MetricsReporter, error) {
	if strings.TrimSpace(schedule) == "" {
		return nil, fmt.Errorf("metrics schedule is empty")
	}
	r := &MetricsReporter{
		cron:    cron.New(),
		emitter: em,
		logf:    redact.Logf,
	}
	if _, err := r.cron.AddFunc(schedule, r.Report); err != nil {
		return nil, fmt.Errorf("parse metrics schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *MetricsReporter) Start() { r.cron.Start() }

// Stop halts scheduling and waits for a running report to finish.
func (r *MetricsReporter) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Report logs one line with the current counters.
func (r *MetricsReporter) Report() {
	r.logf("tracelog: %s", FormatMetrics(r.emitter.MetricsSnapshot()))
}

// FormatMetrics renders counters as key=value pairs with sinks in name order.
func FormatMetrics(m Metrics) string {
	names := m.SinkNames()
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "enqueued=%d dropped=%d", m.Enqueued(), m.Dropped())
	for _, name := range names {
		fmt.Fprintf(&b, " sink[%s]=ok:%d,fail:%d", name, m.SinkSuccess(name), m.SinkFailure(name))
	}
	return b.String()
}
