// Package stats provides a small set of interfaces over go-metrics so that
// callers don't need to depend on the underlying metrics library directly,
// and so that a NilStatsReceiver can be swapped in for tests and debug runs
// without changing call sites.
package stats

import (
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// For testing.
var Time StatsTime = DefaultStatsTime()

// Overridable instrument constructors, so callers can swap implementations in tests.
var NewCounter func() Counter = newMetricCounter
var NewGauge func() Gauge = newMetricGauge
var NewLatency func() Latency = newLatency

// StatsReceiver is the entry point for recording queue metrics: one counter
// per kind of event, one gauge per live quantity, one latency histogram per
// timed operation. Hierarchical names use '/' as a path separator.
type StatsReceiver interface {
	// Scope returns a StatsReceiver that namespaces all further names with
	// the given scope elements, e.g. Scope("queue").Counter("dequeued") is
	// equivalent to Counter("queue", "dequeued").
	Scope(scope ...string) StatsReceiver

	Counter(name ...string) Counter
	Gauge(name ...string) Gauge
	Latency(name ...string) Latency

	Remove(name ...string)
}

// DefaultStatsReceiver returns a StatsReceiver backed by a fresh go-metrics registry.
func DefaultStatsReceiver() StatsReceiver {
	return &defaultStatsReceiver{registry: metrics.NewRegistry()}
}

// NilStatsReceiver discards every recorded stat. Used where a caller has no
// stats plumbing of its own, e.g. in unit tests that don't assert on metrics.
func NilStatsReceiver() StatsReceiver {
	return &nilStatsReceiver{}
}

type defaultStatsReceiver struct {
	registry metrics.Registry
	scope    []string
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{registry: s.registry, scope: s.scoped(scope...)}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	return s.registry.GetOrRegister(s.scopedName(name...), NewCounter).(Counter)
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	return s.registry.GetOrRegister(s.scopedName(name...), NewGauge).(Gauge)
}

func (s *defaultStatsReceiver) Latency(name ...string) Latency {
	return s.registry.GetOrRegister(s.scopedName(name...), NewLatency).(Latency)
}

func (s *defaultStatsReceiver) Remove(name ...string) {
	s.registry.Unregister(s.scopedName(name...))
}

func (s *defaultStatsReceiver) scoped(scope ...string) []string {
	out := make([]string, 0, len(s.scope)+len(scope))
	out = append(out, s.scope...)
	for _, e := range scope {
		out = append(out, strings.Replace(e, "/", "_SLASH_", -1))
	}
	return out
}

func (s *defaultStatsReceiver) scopedName(name ...string) string {
	return strings.Join(s.scoped(name...), "/")
}

type nilStatsReceiver struct{}

func (s *nilStatsReceiver) Scope(scope ...string) StatsReceiver { return s }
func (s *nilStatsReceiver) Counter(name ...string) Counter      { return &metricCounter{&metrics.NilCounter{}} }
func (s *nilStatsReceiver) Gauge(name ...string) Gauge          { return &metricGauge{&metrics.NilGauge{}} }
func (s *nilStatsReceiver) Latency(name ...string) Latency      { return newNilLatency() }
func (s *nilStatsReceiver) Remove(name ...string)               {}

// Counter is a monotonic event count (e.g. tasks dequeued, slots flushed).
type Counter interface {
	Count() int64
	Inc(int64)
}
type metricCounter struct{ metrics.Counter }

func newMetricCounter() Counter { return &metricCounter{metrics.NewCounter()} }

// Gauge holds a point-in-time value (e.g. remaining_global_computation).
type Gauge interface {
	Update(int64)
	Value() int64
}
type metricGauge struct{ metrics.Gauge }

func newMetricGauge() Gauge { return &metricGauge{metrics.NewGauge()} }

// Latency records a histogram of operation durations in nanoseconds.
// Typical use: defer stat.Latency("dequeueLatency_ns").Time().Stop().
type Latency interface {
	Time() Latency // starts the clock, returns self
	Stop()         // records elapsed time since Time()
	Count() int64
	Mean() float64
}
type metricLatency struct {
	metrics.Histogram
	start time.Time
}
type nilLatency struct{}

func newLatency() Latency {
	return &metricLatency{Histogram: metrics.NewHistogram(metrics.NewUniformSample(1000))}
}
func (l *metricLatency) Time() Latency { l.start = Time.Now(); return l }
func (l *metricLatency) Stop()         { l.Update(Time.Since(l.start).Nanoseconds()) }

func newNilLatency() Latency        { return &nilLatency{} }
func (l *nilLatency) Time() Latency { return l }
func (l *nilLatency) Stop()         {}
func (l *nilLatency) Count() int64  { return 0 }
func (l *nilLatency) Mean() float64 { return 0 }
