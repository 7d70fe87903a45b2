package indicator

import "fmt"

// Walk visits i and its descendants depth-first, pre-order. Returning false
// from fn stops the walk.
func (i *Indicator) Walk(fn func(*Indicator) bool) bool {
	if !fn(i) {
		return false
	}
	for _, c := range i.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first indicator in the subtree matching pred.
func (i *Indicator) Find(pred func(*Indicator) bool) (*Indicator, bool) {
	var found *Indicator
	i.Walk(func(ind *Indicator) bool {
		if pred(ind) {
			found = ind
			return false
		}
		return true
	})
	return found, found != nil
}

// FetchIndicator finds an indicator by name anywhere in the subtree. Absence
// means the feature is not configured in this tree.
func (i *Indicator) FetchIndicator(name string) (*Indicator, bool) {
	return i.Find(func(ind *Indicator) bool { return ind.name == name })
}

// MustFetch is FetchIndicator for callers that rely on the fixed tree shape.
// It panics when the indicator is missing.
func (i *Indicator) MustFetch(name string) *Indicator {
	ind, ok := i.FetchIndicator(name)
	if !ok {
		panic(fmt.Sprintf("indicator: %q not found under %q", name, i.name))
	}
	return ind
}

// Parent returns the node whose children include child.
func (i *Indicator) Parent(child *Indicator) (*Indicator, bool) {
	return i.Find(func(ind *Indicator) bool {
		for _, c := range ind.children {
			if c == child {
				return true
			}
		}
		return false
	})
}

// FetchLeaf finds the named indicator and returns its leaf as T.
func FetchLeaf[T Leaf](root *Indicator, name string) (T, bool) {
	var zero T
	ind, ok := root.FetchIndicator(name)
	if !ok {
		return zero, false
	}
	leaf, ok := ind.leaf.(T)
	return leaf, ok
}

// MustLeaf is FetchLeaf for well-formed trees; a missing indicator or a leaf of
// another kind panics.
func MustLeaf[T Leaf](root *Indicator, name string) T {
	leaf, ok := FetchLeaf[T](root, name)
	if !ok {
		panic(fmt.Sprintf("indicator: %q is not a %T leaf under %q", name, leaf, root.name))
	}
	return leaf
}

// LeavesOfKind returns every indicator of kind k in depth-first order.
func LeavesOfKind(root *Indicator, k Kind) []*Indicator {
	var out []*Indicator
	root.Walk(func(ind *Indicator) bool {
		if ind.Kind() == k {
			out = append(out, ind)
		}
		return true
	})
	return out
}
