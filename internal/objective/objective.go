// Package objective evaluates water-quality observations against dated
// compliance targets.
//
// An Objective pairs one Function (LessThan, GreaterThan or Range) with an
// ordered list of Metrics. Each Metric covers an inclusive date window and holds
// the target that applies inside it. Metrics are often authored for a single
// reference year; when no window contains an observation, the windows are
// re-anchored to the observation's year before giving up.
package objective

import (
	"errors"
	"fmt"
	"time"
)

// ErrMetricMismatch is returned when a metric's target shape does not fit the
// objective's function.
var ErrMetricMismatch = errors.New("metric target does not match objective function")

// Metric is the target that applies between Start and End, inclusive.
type Metric struct {
	Start  time.Time
	End    time.Time
	Target Target
}

// Observation is a single timestamped measurement.
type Observation struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Result records how one observation fared against its objective. When
// NoMetric is set no window applied and Excursion carries no meaning.
type Result struct {
	Time         time.Time
	Excursion    float64
	NonCompliant bool
	NoMetric     bool
}

// Objective is a compliance rule with date-bucketed targets.
type Objective struct {
	fn      Function
	metrics []Metric
}

// New builds an Objective, rejecting metrics whose target shape does not match fn.
func New(fn Function, metrics ...Metric) (*Objective, error) {
	if fn == nil {
		return nil, errors.New("objective function is required")
	}
	for i, m := range metrics {
		if !fn.accepts(m.Target) {
			return nil, fmt.Errorf("metric %d (%T) for %s: %w", i, m.Target, fn.Name(), ErrMetricMismatch)
		}
	}
	return &Objective{fn: fn, metrics: append([]Metric(nil), metrics...)}, nil
}

// Function returns the compliance function.
func (o *Objective) Function() Function { return o.fn }

// Metrics returns a copy of the metric list.
func (o *Objective) Metrics() []Metric { return append([]Metric(nil), o.metrics...) }

// Compute evaluates obs against the first metric whose window contains it.
func (o *Objective) Compute(obs Observation) Result {
	for _, m := range o.metrics {
		if within(obs.Time, m.Start, m.End) {
			return o.evaluate(obs, m)
		}
	}
	for _, m := range o.metrics {
		start := reanchor(m.Start, obs.Time.Year())
		end := reanchor(m.End, obs.Time.Year())
		if within(obs.Time, start, end) {
			return o.evaluate(obs, m)
		}
	}
	return Result{Time: obs.Time, NoMetric: true}
}

// ComputeSeries evaluates every observation in order.
func (o *Objective) ComputeSeries(series []Observation) []Result {
	out := make([]Result, len(series))
	for i, obs := range series {
		out[i] = o.Compute(obs)
	}
	return out
}

func (o *Objective) evaluate(obs Observation, m Metric) Result {
	nc := o.fn.NonCompliant(obs.Value, m.Target)
	r := Result{Time: obs.Time, NonCompliant: nc}
	if nc {
		r.Excursion = o.fn.Excursion(obs.Value, m.Target)
	}
	return r
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// reanchor keeps month, day and time of day, replacing the year. A day past
// the end of the month in the target year is clamped, so Feb 29 becomes Feb 28.
func reanchor(t time.Time, year int) time.Time {
	d := t.Day()
	if last := time.Date(year, t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day(); d > last {
		d = last
	}
	return time.Date(year, t.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
