// Package basin assembles the fixed health-index tree for one river basin and
// wraps it in a Model that the service's goroutines share.
package basin

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/basin-health-service/internal/domain"
	"github.com/couchcryptid/basin-health-service/internal/indicator"
	"github.com/couchcryptid/basin-health-service/internal/objective"
	"github.com/couchcryptid/basin-health-service/internal/weighting"
)

var (
	// ErrUnknownIndicator is returned when a named indicator is absent or is
	// not of the kind the operation needs.
	ErrUnknownIndicator = errors.New("unknown indicator")
	// ErrUnknownObservation is returned for observation types the model
	// cannot route.
	ErrUnknownObservation = errors.New("unknown observation type")
)

// Model owns one basin tree. Every method takes the model lock, so the
// pipeline writer and HTTP readers act as a single caller of the tree.
type Model struct {
	mu sync.Mutex

	name       string
	root       *indicator.Indicator
	objectives map[ParameterKey]*objective.Objective

	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithClock sets the clock used for snapshot timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Model) { m.clock = c }
}

// WithLogger sets the model's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithTree replaces the default tree from NewBasinTree.
func WithTree(root *indicator.Indicator) Option {
	return func(m *Model) { m.root = root }
}

// NewModel creates a model for the named basin.
func NewModel(name string, opts ...Option) *Model {
	m := &Model{
		name:       name,
		objectives: make(map[ParameterKey]*objective.Objective),
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.root == nil {
		m.root = NewBasinTree()
	}
	return m
}

// Name returns the basin name.
func (m *Model) Name() string { return m.name }

// Index returns the root's effective value.
func (m *Model) Index() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root.EffectiveValue()
}

// Subscribe registers fn for every change anywhere in the tree. fn runs with
// the model locked and must not call back into the model.
func (m *Model) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unsub := m.root.Subscribe(func(*indicator.Indicator) { fn() })
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		unsub()
	}
}

// ApplyDefinition loads weights, objectives, manual scores and overrides.
// Weights are renormalized afterwards so every sibling group sums to one.
func (m *Model) ApplyDefinition(def *Definition) error {
	objectives, err := def.BuildObjectives()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Resolve every weighted name first so an unknown one leaves the tree untouched.
	names := slices.Sorted(maps.Keys(def.Weights))
	weighted := make([]*indicator.Indicator, len(names))
	for i, name := range names {
		ind, err := m.fetch(name)
		if err != nil {
			return fmt.Errorf("weight: %w", err)
		}
		weighted[i] = ind
	}

	if def.Name != "" {
		m.name = def.Name
	}
	for i, ind := range weighted {
		ind.SetWeight(def.Weights[names[i]])
	}
	m.root.NormalizeWeights()

	for key, obj := range objectives {
		m.objectives[key] = obj
		m.bindObjective(key, obj)
	}
	for _, name := range slices.Sorted(maps.Keys(def.ManualScores)) {
		if err := m.setManualScore(name, def.ManualScores[name]); err != nil {
			return err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(def.Overrides)) {
		o := def.Overrides[name]
		if err := m.setOverride(name, o.Value, o.Comment); err != nil {
			return err
		}
	}
	m.logger.Info("basin definition applied",
		"basin", m.name,
		"weights", len(def.Weights),
		"objectives", len(objectives),
		"manual_scores", len(def.ManualScores),
		"overrides", len(def.Overrides),
	)
	return nil
}

// bindObjective updates a parameter that already exists in the tree.
func (m *Model) bindObjective(key ParameterKey, obj *objective.Objective) {
	for _, ind := range indicator.LeavesOfKind(m.root, indicator.KindWaterQuality) {
		wq := ind.Leaf().(*indicator.WaterQuality)
		if g, ok := wq.Gauge(key.Gauge); ok {
			if p, ok := g.Parameter(key.Parameter); ok {
				p.SetObjective(obj)
			}
		}
	}
}

// SetOverride pins an indicator's effective value. An out-of-range value is
// rejected with indicator.ErrScoreOutOfRange and the prior override kept.
func (m *Model) SetOverride(name string, value int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setOverride(name, value, comment)
}

func (m *Model) setOverride(name string, value int, comment string) error {
	ind, err := m.fetch(name)
	if err != nil {
		return err
	}
	if err := ind.SetOverride(value); err != nil {
		return err
	}
	ind.SetOverrideComment(comment)
	m.logger.Info("override set", "indicator", name, "value", value)
	return nil
}

// ClearOverride removes an override and its comment.
func (m *Model) ClearOverride(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ind, err := m.fetch(name)
	if err != nil {
		return err
	}
	ind.ClearOverride()
	ind.SetOverrideComment("")
	m.logger.Info("override cleared", "indicator", name)
	return nil
}

// SetManualScore sets the score of a manual-entry leaf.
func (m *Model) SetManualScore(name string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setManualScore(name, score)
}

func (m *Model) setManualScore(name string, score int) error {
	leaf, err := fetchLeaf[*indicator.ManualEntry](m.root, name, indicator.KindManual)
	if err != nil {
		return err
	}
	if err := leaf.SetScore(score); err != nil {
		return fmt.Errorf("manual score %q: %w", name, err)
	}
	return nil
}

// WeightShare is one sibling's weight as a percent.
type WeightShare struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

// EditWeight sets child's share of parent to percent, redistributes the
// difference over the siblings and commits the result.
func (m *Model) EditWeight(parent, child string, percent int) ([]WeightShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.fetch(parent)
	if err != nil {
		return nil, err
	}
	group := weighting.ForChildren(p)
	idx, ok := group.Index(child)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a child of %q", ErrUnknownIndicator, child, parent)
	}
	if err := group.Set(idx, percent); err != nil {
		return nil, fmt.Errorf("weight of %q: %w", child, err)
	}
	group.Commit()

	children := p.Children()
	percents := group.Percents()
	shares := make([]WeightShare, len(children))
	for i, c := range children {
		shares[i] = WeightShare{Name: c.Name(), Percent: percents[i]}
	}
	m.logger.Info("weights edited", "parent", parent, "indicator", child, "percent", percent)
	return shares, nil
}

// ImportGovernance rebuilds the governance subtree from survey tranches:
// tranche i becomes the questions of the i-th survey indicator in tree order.
// The new subtree replaces the old one in a single step.
func (m *Model) ImportGovernance(tranches [][]indicator.Question) error {
	fresh := NewGovernanceTree()
	leaves := indicator.LeavesOfKind(fresh, indicator.KindGovernance)
	if len(tranches) > len(leaves) {
		return fmt.Errorf("import governance: %d tranches for %d survey indicators", len(tranches), len(leaves))
	}
	for i, qs := range tranches {
		leaves[i].Leaf().(*indicator.GovernanceSurvey).SetQuestions(qs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.root.ReplaceChild(GovernanceStakeholder, fresh) {
		return fmt.Errorf("%w: %q", ErrUnknownIndicator, GovernanceStakeholder)
	}
	m.logger.Info("governance imported", "tranches", len(tranches))
	return nil
}

// AssignGovernance sets the questions of survey indicators by name. Groups
// whose name matches no survey indicator are returned sorted; they are not an
// error.
func (m *Model) AssignGovernance(groups map[string][]indicator.Question) (unmatched []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		survey, err := fetchLeaf[*indicator.GovernanceSurvey](m.root, name, indicator.KindGovernance)
		if err != nil {
			unmatched = append(unmatched, name)
			continue
		}
		survey.SetQuestions(groups[name])
	}
	if len(unmatched) > 0 {
		m.logger.Warn("governance groups without a matching indicator", "groups", unmatched)
	}
	return unmatched
}

// Apply routes one observation to its leaf, creating stations, gauges,
// parameters, coverage classes and questions as needed.
func (m *Model) Apply(obs domain.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch obs.Type {
	case domain.TypeDischarge:
		return m.applyDischarge(obs)
	case domain.TypeWaterQuality:
		return m.applyWaterQuality(obs)
	case domain.TypeLandCover:
		return m.applyLandCover(obs)
	case domain.TypeSurveyAnswer:
		return m.applySurveyAnswer(obs)
	case domain.TypeManualScore:
		if obs.Value == nil {
			return fmt.Errorf("manual score %q: value is required", obs.Indicator)
		}
		return m.setManualScore(obs.Indicator, int(*obs.Value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownObservation, obs.Type)
	}
}

func (m *Model) applyDischarge(obs domain.Observation) error {
	fd, err := leafFor[*indicator.FlowDeviation](m.root, obs.Indicator, indicator.KindFlowDeviation)
	if err != nil {
		return err
	}
	if obs.Value == nil {
		return fmt.Errorf("discharge at %q: value is required", obs.Station)
	}
	st, ok := fd.Station(obs.Station)
	if !ok {
		st = indicator.NewStation(obs.Station)
		fd.AddStation(st)
		m.logger.Debug("station created", "station", obs.Station)
	}
	point := objective.Observation{Time: obs.Time, Value: *obs.Value}
	switch obs.Series {
	case domain.SeriesRegulated:
		st.AppendRegulated(point)
	case domain.SeriesUnregulated:
		st.AppendUnregulated(point)
	default:
		return fmt.Errorf("discharge at %q: unknown series %q", obs.Station, obs.Series)
	}
	return nil
}

func (m *Model) applyWaterQuality(obs domain.Observation) error {
	wq, err := leafFor[*indicator.WaterQuality](m.root, obs.Indicator, indicator.KindWaterQuality)
	if err != nil {
		return err
	}
	if obs.Value == nil {
		return fmt.Errorf("water quality at %q: value is required", obs.Gauge)
	}
	g, ok := wq.Gauge(obs.Gauge)
	if !ok {
		g = indicator.NewGauge(obs.Gauge)
		wq.AddGauge(g)
		m.logger.Debug("gauge created", "gauge", obs.Gauge)
	}
	p, ok := g.Parameter(obs.Parameter)
	if !ok {
		obj := m.objectives[ParameterKey{Gauge: obs.Gauge, Parameter: obs.Parameter}]
		if obj == nil {
			m.logger.Warn("parameter has no objective", "gauge", obs.Gauge, "parameter", obs.Parameter)
		}
		p = indicator.NewParameter(obs.Parameter, obj)
		g.AddParameter(p)
	}
	p.Append(objective.Observation{Time: obs.Time, Value: *obs.Value})
	return nil
}

func (m *Model) applyLandCover(obs domain.Observation) error {
	lc, err := leafFor[*indicator.LandCover](m.root, obs.Indicator, indicator.KindLandCover)
	if err != nil {
		return err
	}
	lc.Upsert(indicator.CoverageItem{Class: obs.Class, Weight: obs.Weight, Area: obs.Area})
	return nil
}

func (m *Model) applySurveyAnswer(obs domain.Observation) error {
	survey, err := fetchLeaf[*indicator.GovernanceSurvey](m.root, obs.Indicator, indicator.KindGovernance)
	if err != nil {
		return err
	}
	a := indicator.Answer{User: obs.User, Comment: obs.Comment, Weight: obs.Weight}
	if obs.Value != nil {
		v := int(math.Round(*obs.Value))
		a.Value = &v
	}
	survey.AddAnswer(obs.Question, a)
	return nil
}

func (m *Model) fetch(name string) (*indicator.Indicator, error) {
	ind, ok := m.root.FetchIndicator(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, name)
	}
	return ind, nil
}

// fetchLeaf returns the leaf of the named indicator when it is of kind k.
func fetchLeaf[T indicator.Leaf](root *indicator.Indicator, name string, k indicator.Kind) (T, error) {
	leaf, ok := indicator.FetchLeaf[T](root, name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: no %s indicator named %q", ErrUnknownIndicator, k, name)
	}
	return leaf, nil
}

// leafFor resolves name like fetchLeaf, or, when name is empty, the tree's
// only leaf of kind k.
func leafFor[T indicator.Leaf](root *indicator.Indicator, name string, k indicator.Kind) (T, error) {
	if name != "" {
		return fetchLeaf[T](root, name, k)
	}
	var zero T
	leaves := indicator.LeavesOfKind(root, k)
	if len(leaves) != 1 {
		return zero, fmt.Errorf("%w: %d %s indicators, name one explicitly", ErrUnknownIndicator, len(leaves), k)
	}
	return leaves[0].Leaf().(T), nil
}
