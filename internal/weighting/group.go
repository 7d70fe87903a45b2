// Package weighting keeps a sibling group's weights summing to 100% while a
// user edits them one at a time.
package weighting

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/basin-health-service/internal/indicator"
)

// ErrPercentOutOfRange is returned for edits outside [0, 100].
var ErrPercentOutOfRange = errors.New("percent must be between 0 and 100")

// maxRedistributed caps what redistribution may push a sibling to.
const maxRedistributed = 99

// Group holds the percent values of a sibling group being edited. Edits stay
// in the group until Commit writes them to the indicators.
type Group struct {
	members  []*indicator.Indicator
	percents []int

	// OnChange, when set, is called for every member whose percent changed
	// during an edit, the edited member included.
	OnChange func(index, percent int)

	adjusting bool
}

// NewGroup snapshots the current weights of members as percents.
func NewGroup(members []*indicator.Indicator) *Group {
	g := &Group{
		members:  members,
		percents: make([]int, len(members)),
	}
	for i, m := range members {
		g.percents[i] = int(math.Round(m.Weight() * 100))
	}
	return g
}

// ForChildren builds a group over parent's children.
func ForChildren(parent *indicator.Indicator) *Group {
	return NewGroup(parent.Children())
}

// Len returns the number of members.
func (g *Group) Len() int { return len(g.percents) }

// Percents returns a copy of the current percents.
func (g *Group) Percents() []int { return append([]int(nil), g.percents...) }

// Total returns the sum of the current percents.
func (g *Group) Total() int {
	var sum int
	for _, p := range g.percents {
		sum += p
	}
	return sum
}

// Index returns the position of the member with the given name.
func (g *Group) Index(name string) (int, bool) {
	for i, m := range g.members {
		if m.Name() == name {
			return i, true
		}
	}
	return 0, false
}

// Set assigns v to member i and spreads the difference over the others so
// the group totals 100 again. The slack is divided evenly with integer
// division; each other member is clamped to [0, 99]. Whatever rounding leaves
// over is charged to member i.
//
// Calls made while an edit is in progress, typically from OnChange, are
// ignored.
func (g *Group) Set(i, v int) error {
	if i < 0 || i >= len(g.percents) {
		return fmt.Errorf("member %d of %d: index out of range", i, len(g.percents))
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("%d: %w", v, ErrPercentOutOfRange)
	}
	if g.adjusting {
		return nil
	}
	g.adjusting = true
	defer func() { g.adjusting = false }()

	before := g.Percents()
	g.percents[i] = v
	g.redistribute(i)

	if g.OnChange != nil {
		for idx, p := range g.percents {
			if p != before[idx] {
				g.OnChange(idx, p)
			}
		}
	}
	return nil
}

func (g *Group) redistribute(edited int) {
	n := len(g.percents)
	slack := 100 - g.Total()
	if slack == 0 {
		return
	}
	if n > 1 {
		if addToEach := slack / (n - 1); addToEach != 0 {
			for idx := range g.percents {
				if idx == edited {
					continue
				}
				g.percents[idx] = clamp(g.percents[idx]+addToEach, 0, maxRedistributed)
			}
		}
	}
	g.percents[edited] += 100 - g.Total()
}

// Commit writes percent/100 to each member's weight.
func (g *Group) Commit() {
	for i, m := range g.members {
		m.SetWeight(float64(g.percents[i]) / 100)
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
