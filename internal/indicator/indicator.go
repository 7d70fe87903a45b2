package indicator

import (
	"fmt"
	"math"
)

// Kind identifies what an indicator computes its score from.
type Kind string

const (
	KindComposite     Kind = "composite"
	KindManual        Kind = "manual"
	KindGovernance    Kind = "governance"
	KindWaterQuality  Kind = "water_quality"
	KindFlowDeviation Kind = "flow_deviation"
	KindLandCover     Kind = "land_cover"
)

// Leaf is the raw-data half of a leaf indicator. The set of leaf kinds is
// fixed; implementations live in this package.
type Leaf interface {
	Kind() Kind
	// ComputeIndicator scores the leaf's raw data. ok is false when the data
	// is insufficient to produce a score.
	ComputeIndicator() (score int, ok bool)
	attach(notify func())
}

// Listener receives change signals. source is the indicator that emitted it.
type Listener func(source *Indicator)

type subscription struct {
	id int
	fn Listener
}

// Indicator is a named, weighted node in the scoring tree. A node either has
// children (composite) or a leaf, never both.
//
// Scores are cached: Value computes lazily and memoizes until Invalidate. Every
// composite subscribes to its children at attach time so that any change in a
// subtree invalidates each ancestor before the mutating call returns.
type Indicator struct {
	name   string
	weight float64

	value int
	ok    bool
	fresh bool

	override *int
	comment  string

	leaf     Leaf
	children []*Indicator
	unsubs   []func()

	listeners []subscription
	nextSub   int
}

// NewComposite creates a node that aggregates children.
func NewComposite(name string, children ...*Indicator) *Indicator {
	ind := &Indicator{name: name}
	for _, c := range children {
		ind.AddChild(c)
	}
	return ind
}

// NewLeaf creates a node scored by leaf. Raw-data mutations on leaf invalidate
// the node.
func NewLeaf(name string, leaf Leaf) *Indicator {
	ind := &Indicator{name: name, leaf: leaf}
	leaf.attach(ind.Invalidate)
	return ind
}

func (i *Indicator) Name() string { return i.name }

// Kind reports KindComposite for nodes without a leaf.
func (i *Indicator) Kind() Kind {
	if i.leaf == nil {
		return KindComposite
	}
	return i.leaf.Kind()
}

// Leaf returns the node's leaf, or nil for composites.
func (i *Indicator) Leaf() Leaf { return i.leaf }

func (i *Indicator) Weight() float64 { return i.weight }

// SetWeight stores w as-is. Sibling weights are not renormalized; use the
// weighting package to keep a group summing to 100%.
func (i *Indicator) SetWeight(w float64) {
	if i.weight == w {
		return
	}
	i.weight = w
	i.Invalidate()
}

// Children returns the node's children in order.
func (i *Indicator) Children() []*Indicator {
	return append([]*Indicator(nil), i.children...)
}

// AddChild attaches c and subscribes to its change signal.
func (i *Indicator) AddChild(c *Indicator) {
	if i.leaf != nil {
		panic(fmt.Sprintf("indicator: %q is a %s leaf and cannot have children", i.name, i.leaf.Kind()))
	}
	i.children = append(i.children, c)
	i.unsubs = append(i.unsubs, c.Subscribe(func(*Indicator) { i.Invalidate() }))
	i.Invalidate()
}

// ReplaceChild swaps the child named name for c, carrying over the slot's
// weight. It reports false when no child has that name.
func (i *Indicator) ReplaceChild(name string, c *Indicator) bool {
	for idx, old := range i.children {
		if old.name != name {
			continue
		}
		i.unsubs[idx]()
		c.weight = old.weight
		i.children[idx] = c
		i.unsubs[idx] = c.Subscribe(func(*Indicator) { i.Invalidate() })
		i.Invalidate()
		return true
	}
	return false
}

// Subscribe registers fn for this node's change signal and returns a function
// that removes it.
func (i *Indicator) Subscribe(fn Listener) (unsubscribe func()) {
	id := i.nextSub
	i.nextSub++
	i.listeners = append(i.listeners, subscription{id: id, fn: fn})
	return func() {
		for idx, s := range i.listeners {
			if s.id == id {
				i.listeners = append(i.listeners[:idx], i.listeners[idx+1:]...)
				return
			}
		}
	}
}

// Invalidate drops the cached score and signals listeners. Recomputation
// happens on the next read.
func (i *Indicator) Invalidate() {
	i.fresh = false
	i.emit()
}

// Stale reports whether the next Value call will recompute.
func (i *Indicator) Stale() bool { return !i.fresh }

func (i *Indicator) emit() {
	for _, s := range append([]subscription(nil), i.listeners...) {
		s.fn(i)
	}
}

// EffectiveValue is the user override when set, otherwise Value.
func (i *Indicator) EffectiveValue() (int, bool) {
	if i.override != nil {
		return *i.override, true
	}
	return i.Value()
}

// Value returns the computed score, recomputing if the cache is stale.
func (i *Indicator) Value() (int, bool) {
	if i.fresh {
		return i.value, i.ok
	}
	if i.leaf != nil {
		i.value, i.ok = i.leaf.ComputeIndicator()
	} else {
		i.value, i.ok = i.aggregate()
	}
	i.fresh = true
	return i.value, i.ok
}

// aggregate is the weighted mean of children's effective values. Children
// without a value are left out of both the sum and the weight total.
func (i *Indicator) aggregate() (int, bool) {
	var sum, weights float64
	for _, c := range i.children {
		v, ok := c.EffectiveValue()
		if !ok {
			continue
		}
		sum += float64(v) * c.weight
		weights += c.weight
	}
	if weights == 0 {
		return 0, false
	}
	return int(math.Round(sum / weights)), true
}
