package basin

import (
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/basin-health-service/internal/indicator"
)

// Snapshot is a point-in-time rendering of the whole tree, published after
// every applied batch and served over HTTP.
type Snapshot struct {
	ID         string    `json:"id"`
	Basin      string    `json:"basin"`
	ComputedAt time.Time `json:"computed_at"`
	Index      *int      `json:"index"`
	Root       Node      `json:"root"`
}

// Node is one indicator in a Snapshot. Value and EffectiveValue are null when
// undefined.
type Node struct {
	Name           string         `json:"name"`
	Kind           indicator.Kind `json:"kind"`
	Weight         float64        `json:"weight"`
	Value          *int           `json:"value"`
	EffectiveValue *int           `json:"effective_value"`
	Override       *int           `json:"override,omitempty"`
	Comment        string         `json:"comment,omitempty"`
	Children       []Node         `json:"children,omitempty"`

	Gauges   map[string]indicator.GaugeBreakdown `json:"gauges,omitempty"`
	Stations map[string]indicator.StationStats   `json:"stations,omitempty"`
}

// Snapshot renders the tree with a fresh ID and the model clock's time.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	root := render(m.root)
	return Snapshot{
		ID:         uuid.NewString(),
		Basin:      m.name,
		ComputedAt: m.clock.Now().UTC(),
		Index:      root.EffectiveValue,
		Root:       root,
	}
}

// Node renders the subtree rooted at the named indicator.
func (m *Model) Node(name string) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ind, err := m.fetch(name)
	if err != nil {
		return Node{}, err
	}
	return render(ind), nil
}

func render(ind *indicator.Indicator) Node {
	n := Node{
		Name:    ind.Name(),
		Kind:    ind.Kind(),
		Weight:  ind.Weight(),
		Comment: ind.OverrideComment(),
	}
	n.Value = optional(ind.Value())
	n.EffectiveValue = optional(ind.EffectiveValue())
	n.Override = optional(ind.Override())

	switch leaf := ind.Leaf().(type) {
	case *indicator.WaterQuality:
		for _, g := range leaf.Gauges() {
			if n.Gauges == nil {
				n.Gauges = make(map[string]indicator.GaugeBreakdown)
			}
			n.Gauges[g.Name] = g.Breakdown()
		}
	case *indicator.FlowDeviation:
		for _, s := range leaf.Stations() {
			if st, ok := s.Stats(); ok {
				if n.Stations == nil {
					n.Stations = make(map[string]indicator.StationStats)
				}
				n.Stations[s.Name] = st
			}
		}
	}

	for _, c := range ind.Children() {
		n.Children = append(n.Children, render(c))
	}
	return n
}

func optional(v int, ok bool) *int {
	if !ok {
		return nil
	}
	return &v
}
