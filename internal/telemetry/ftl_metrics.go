package internaltelemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sushant-115/gojoftl/core/ftl"
)

// FTLMetrics holds the metric instruments of a simulated FTL.
type FTLMetrics struct {
	ErasesCounter         metric.Int64Counter
	RelocatedCounter      metric.Int64Counter
	LogicalWritesCounter  metric.Int64Counter
	PhysicalWritesCounter metric.Int64Counter
	WriteAmpGauge         metric.Float64Gauge
	MinValidGauge         metric.Int64Gauge
}

// NewFTLMetrics creates and registers all the FTL instruments on meter.
func NewFTLMetrics(meter metric.Meter) (*FTLMetrics, error) {
	erasesCounter, err := meter.Int64Counter(
		"gojoftl.ftl.erases",
		metric.WithDescription("Total number of block erases."),
		metric.WithUnit("{erase}"),
	)
	if err != nil {
		return nil, err
	}

	relocatedCounter, err := meter.Int64Counter(
		"gojoftl.ftl.relocated_pages",
		metric.WithDescription("Valid pages rewritten by garbage collection."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	logicalWritesCounter, err := meter.Int64Counter(
		"gojoftl.ftl.logical_writes",
		metric.WithDescription("Host page writes."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	physicalWritesCounter, err := meter.Int64Counter(
		"gojoftl.ftl.physical_writes",
		metric.WithDescription("Page writes issued to flash, host and relocation."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	writeAmpGauge, err := meter.Float64Gauge(
		"gojoftl.ftl.write_amplification",
		metric.WithDescription("Physical writes per logical write."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	minValidGauge, err := meter.Int64Gauge(
		"gojoftl.ftl.min_valid",
		metric.WithDescription("Minimum valid page count among full blocks."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	return &FTLMetrics{
		ErasesCounter:         erasesCounter,
		RelocatedCounter:      relocatedCounter,
		LogicalWritesCounter:  logicalWritesCounter,
		PhysicalWritesCounter: physicalWritesCounter,
		WriteAmpGauge:         writeAmpGauge,
		MinValidGauge:         minValidGauge,
	}, nil
}

// Recorder is an ftl.EraseObserver feeding FTLMetrics. Counters are advanced
// by the delta since the last event, so Flush must be called once the run
// ends to account for writes after the final erase.
type Recorder struct {
	metrics *FTLMetrics
	ctx     context.Context
	attrs   metric.MeasurementOption
	last    ftl.Stats
}

// NewRecorder tags every measurement with the algorithm and run id.
func NewRecorder(ctx context.Context, m *FTLMetrics, algorithm, runID string) *Recorder {
	return &Recorder{
		metrics: m,
		ctx:     ctx,
		attrs: metric.WithAttributes(
			attribute.String("algorithm", algorithm),
			attribute.String("run_id", runID),
		),
	}
}

func (r *Recorder) OnErase(ev ftl.EraseEvent) {
	r.record(ev.Stats)
	r.metrics.MinValidGauge.Record(r.ctx, int64(ev.MinValid), r.attrs)
}

// Flush records the counters accumulated since the last erase.
func (r *Recorder) Flush(stats ftl.Stats) { r.record(stats) }

func (r *Recorder) record(s ftl.Stats) {
	r.metrics.ErasesCounter.Add(r.ctx, int64(s.Erases-r.last.Erases), r.attrs)
	r.metrics.RelocatedCounter.Add(r.ctx, int64(s.RelocatedPages-r.last.RelocatedPages), r.attrs)
	r.metrics.LogicalWritesCounter.Add(r.ctx, int64(s.LogicalWrites-r.last.LogicalWrites), r.attrs)
	r.metrics.PhysicalWritesCounter.Add(r.ctx, int64(s.PhysicalWrites-r.last.PhysicalWrites), r.attrs)
	r.metrics.WriteAmpGauge.Record(r.ctx, s.WriteAmplification(), r.attrs)
	r.last = s
}
