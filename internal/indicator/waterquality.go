package indicator

import (
	"math"

	"github.com/couchcryptid/basin-health-service/internal/objective"
)

// WaterQuality scores compliance of monitored parameters at a set of gauges.
//
// For each gauge:
//
//	F1 = parameters with at least one failed timestep / parameters
//	F2 = failed timesteps / timesteps
//	nse = sum of excursions / timesteps
//	F3 = nse / (nse + 1)
//	score = 100 - sqrt(F1 * F3)
//
// The indicator is the mean of the gauges that produced a score. Timesteps
// with no applicable metric are gaps and do not count.
type WaterQuality struct {
	leafBase
	gauges []*Gauge
}

func NewWaterQuality() *WaterQuality { return &WaterQuality{} }

func (*WaterQuality) Kind() Kind { return KindWaterQuality }

// AddGauge takes ownership of g.
func (w *WaterQuality) AddGauge(g *Gauge) {
	g.notify = w.changed
	w.gauges = append(w.gauges, g)
	w.changed()
}

// Gauge looks up a gauge by name.
func (w *WaterQuality) Gauge(name string) (*Gauge, bool) {
	for _, g := range w.gauges {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

func (w *WaterQuality) Gauges() []*Gauge { return append([]*Gauge(nil), w.gauges...) }

func (w *WaterQuality) ComputeIndicator() (int, bool) {
	var sum float64
	var n int
	for _, g := range w.gauges {
		b := g.Breakdown()
		if !b.Defined {
			continue
		}
		sum += b.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(sum / float64(n))), true
}

// Gauge is a monitoring site with one or more parameters.
type Gauge struct {
	Name   string
	params []*Parameter
	notify func()
}

func NewGauge(name string) *Gauge { return &Gauge{Name: name} }

func (g *Gauge) changed() {
	if g.notify != nil {
		g.notify()
	}
}

// AddParameter takes ownership of p.
func (g *Gauge) AddParameter(p *Parameter) {
	p.notify = g.changed
	g.params = append(g.params, p)
	g.changed()
}

func (g *Gauge) Parameter(name string) (*Parameter, bool) {
	for _, p := range g.params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (g *Gauge) Parameters() []*Parameter { return append([]*Parameter(nil), g.params...) }

// GaugeBreakdown holds the intermediate factors of a gauge score. Defined is
// false when the gauge has no parameters or no evaluated timesteps.
type GaugeBreakdown struct {
	F1      float64 `json:"f1"`
	F2      float64 `json:"f2"`
	F3      float64 `json:"f3"`
	Score   float64 `json:"score"`
	Defined bool    `json:"defined"`
}

// Breakdown evaluates every parameter against its objective.
func (g *Gauge) Breakdown() GaugeBreakdown {
	if len(g.params) == 0 {
		return GaugeBreakdown{}
	}
	var failedParams, failed, total int
	var excursions float64
	for _, p := range g.params {
		anyFailed := false
		for _, r := range p.Results() {
			if r.NoMetric {
				continue
			}
			total++
			if r.NonCompliant {
				failed++
				anyFailed = true
				excursions += r.Excursion
			}
		}
		if anyFailed {
			failedParams++
		}
	}
	b := GaugeBreakdown{F1: float64(failedParams) / float64(len(g.params))}
	if total == 0 {
		return b
	}
	b.F2 = float64(failed) / float64(total)
	nse := excursions / float64(total)
	b.F3 = nse / (nse + 1)
	b.Score = 100 - math.Sqrt(b.F1*b.F3)
	b.Defined = true
	return b
}

// Parameter is one measured quantity at a gauge with its objective.
type Parameter struct {
	Name      string
	objective *objective.Objective
	series    []objective.Observation
	notify    func()
}

func NewParameter(name string, obj *objective.Objective) *Parameter {
	return &Parameter{Name: name, objective: obj}
}

func (p *Parameter) changed() {
	if p.notify != nil {
		p.notify()
	}
}

func (p *Parameter) Objective() *objective.Objective { return p.objective }

// SetObjective replaces the objective. A nil objective leaves every timestep
// without a metric.
func (p *Parameter) SetObjective(obj *objective.Objective) {
	p.objective = obj
	p.changed()
}

// Append adds observations to the series.
func (p *Parameter) Append(obs ...objective.Observation) {
	p.series = append(p.series, obs...)
	p.changed()
}

// Replace swaps the whole series.
func (p *Parameter) Replace(series []objective.Observation) {
	p.series = append([]objective.Observation(nil), series...)
	p.changed()
}

func (p *Parameter) Series() []objective.Observation {
	return append([]objective.Observation(nil), p.series...)
}

// Results evaluates the series against the objective.
func (p *Parameter) Results() []objective.Result {
	if p.objective == nil {
		out := make([]objective.Result, len(p.series))
		for i, obs := range p.series {
			out[i] = objective.Result{Time: obs.Time, NoMetric: true}
		}
		return out
	}
	return p.objective.ComputeSeries(p.series)
}
