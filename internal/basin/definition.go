package basin

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/basin-health-service/internal/objective"
)

// Definition is the per-basin configuration layered onto the fixed tree:
// weights, water-quality objectives, initial manual scores and overrides.
//
//	name: mekong
//	weights:
//	  Ecosystem Vitality: 0.4
//	  Ecosystem Services: 0.3
//	  Governance & Stakeholders: 0.3
//	objectives:
//	  - gauge: G-04
//	    parameter: DO
//	    function: less_than
//	    metrics:
//	      - {start: 2019-01-01, end: 2019-12-31, value: 5}
//	manual_scores:
//	  Recreation: 70
//	overrides:
//	  Bank Modification: {value: 60, comment: field survey 2023}
type Definition struct {
	Name         string                 `yaml:"name"`
	Weights      map[string]float64     `yaml:"weights"`
	Objectives   []ObjectiveDefinition  `yaml:"objectives"`
	ManualScores map[string]int         `yaml:"manual_scores"`
	Overrides    map[string]OverrideDef `yaml:"overrides"`
}

// ObjectiveDefinition binds an objective to one parameter at one gauge.
type ObjectiveDefinition struct {
	Gauge     string             `yaml:"gauge"`
	Parameter string             `yaml:"parameter"`
	Function  string             `yaml:"function"`
	Metrics   []MetricDefinition `yaml:"metrics"`
}

// MetricDefinition is one dated target. Value is used by less_than and
// greater_than, Min and Max by range. Start and End are YYYY-MM-DD dates or
// RFC 3339 timestamps; a bare End date covers the whole day.
type MetricDefinition struct {
	Start string   `yaml:"start"`
	End   string   `yaml:"end"`
	Value *float64 `yaml:"value"`
	Min   *float64 `yaml:"min"`
	Max   *float64 `yaml:"max"`
}

type OverrideDef struct {
	Value   int    `yaml:"value"`
	Comment string `yaml:"comment"`
}

// LoadDefinition reads and parses a YAML definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}
	return ParseDefinition(data)
}

// ParseDefinition parses a YAML definition and validates its objectives.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if _, err := def.BuildObjectives(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParameterKey addresses one parameter of one gauge.
type ParameterKey struct {
	Gauge     string
	Parameter string
}

// BuildObjectives converts the objective definitions into Objectives keyed by
// gauge and parameter.
func (d *Definition) BuildObjectives() (map[ParameterKey]*objective.Objective, error) {
	out := make(map[ParameterKey]*objective.Objective, len(d.Objectives))
	for _, od := range d.Objectives {
		key := ParameterKey{Gauge: od.Gauge, Parameter: od.Parameter}
		if key.Gauge == "" || key.Parameter == "" {
			return nil, errors.New("objective: gauge and parameter are required")
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("objective %s/%s: defined twice", key.Gauge, key.Parameter)
		}
		obj, err := od.build()
		if err != nil {
			return nil, fmt.Errorf("objective %s/%s: %w", key.Gauge, key.Parameter, err)
		}
		out[key] = obj
	}
	return out, nil
}

func (od ObjectiveDefinition) build() (*objective.Objective, error) {
	fn, err := objective.FunctionByName(od.Function)
	if err != nil {
		return nil, err
	}
	metrics := make([]objective.Metric, 0, len(od.Metrics))
	for i, md := range od.Metrics {
		m, err := md.metric()
		if err != nil {
			return nil, fmt.Errorf("metric %d: %w", i, err)
		}
		metrics = append(metrics, m)
	}
	return objective.New(fn, metrics...)
}

func (md MetricDefinition) metric() (objective.Metric, error) {
	start, _, err := parseBound(md.Start)
	if err != nil {
		return objective.Metric{}, fmt.Errorf("start: %w", err)
	}
	end, dateOnly, err := parseBound(md.End)
	if err != nil {
		return objective.Metric{}, fmt.Errorf("end: %w", err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return objective.Metric{}, fmt.Errorf("end %s is before start %s", md.End, md.Start)
	}

	m := objective.Metric{Start: start, End: end}
	switch {
	case md.Min != nil && md.Max != nil:
		m.Target = objective.Bounds{Min: *md.Min, Max: *md.Max}
	case md.Value != nil:
		m.Target = objective.SingleValue{Value: *md.Value}
	default:
		return objective.Metric{}, errors.New("either value or min and max are required")
	}
	return m, nil
}

func parseBound(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, errors.New("is required")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t.UTC(), false, nil
}
