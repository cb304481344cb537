package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/phrazzld/synth-api/internal/task"

// Metrics records reconciliation activity.
type Metrics struct {
	transitions   metric.Int64Counter
	sweepDuration metric.Float64Histogram
	sweepFailures metric.Int64Counter
	submissions   metric.Int64Counter
	untracked     metric.Int64Counter
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)

	transitions, err := meter.Int64Counter("synth.task.transitions",
		metric.WithDescription("Task status transitions applied"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, fmt.Errorf("create transitions counter: %w", err)
	}

	sweepDuration, err := meter.Float64Histogram("synth.sweep.duration",
		metric.WithDescription("Duration of reconciliation sweeps"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create sweep duration histogram: %w", err)
	}

	sweepFailures, err := meter.Int64Counter("synth.sweep.record_failures",
		metric.WithDescription("Records a sweep could not resolve"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("create sweep failures counter: %w", err)
	}

	submissions, err := meter.Int64Counter("synth.task.submissions",
		metric.WithDescription("Synthesis tasks submitted"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, fmt.Errorf("create submissions counter: %w", err)
	}

	untracked, err := meter.Int64Counter("synth.task.untracked",
		metric.WithDescription("Synthesis tasks started but not recorded"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, fmt.Errorf("create untracked counter: %w", err)
	}

	return &Metrics{
		transitions:   transitions,
		sweepDuration: sweepDuration,
		sweepFailures: sweepFailures,
		submissions:   submissions,
		untracked:     untracked,
	}, nil
}

// RecordSweep records one finished sweep.
func (m *Metrics) RecordSweep(ctx context.Context, elapsed time.Duration, failed int) {
	m.sweepDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("had_failures", failed > 0)))
	if failed > 0 {
		m.sweepFailures.Add(ctx, int64(failed))
	}
}

// RecordUntracked counts a started task whose record could not be written.
func (m *Metrics) RecordUntracked(ctx context.Context) {
	m.untracked.Add(ctx, 1)
}

// HandleEvent implements events.EventHandler by counting transitions.
func (m *Metrics) HandleEvent(ctx context.Context, event *events.TaskTransitionEvent) error {
	if event.From == "" && event.To == domain.TaskStatusInProgress {
		m.submissions.Add(ctx, 1)
		return nil
	}

	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to", string(event.To)),
		attribute.String("source", event.Source),
	))
	return nil
}
