package indicator

import "math"

const weightTolerance = 1e-9

// NormalizeWeights makes every sibling group under i sum to 1.0, top-down.
// Groups whose weights are all equal (including all zero) get 1/n each; other
// groups are rescaled proportionally when their sum is off. It runs once after
// a tree is built and does not stand in for the redistribution of user edits.
func (i *Indicator) NormalizeWeights() {
	n := len(i.children)
	if n == 0 {
		return
	}
	switch {
	case equalWeights(i.children):
		for _, c := range i.children {
			c.SetWeight(1 / float64(n))
		}
	default:
		var sum float64
		for _, c := range i.children {
			sum += c.weight
		}
		if sum > 0 && math.Abs(sum-1) > weightTolerance {
			for _, c := range i.children {
				c.SetWeight(c.weight / sum)
			}
		}
	}
	for _, c := range i.children {
		c.NormalizeWeights()
	}
}

func equalWeights(children []*Indicator) bool {
	for _, c := range children[1:] {
		if c.weight != children[0].weight {
			return false
		}
	}
	return true
}

// WeightSum returns the sum of i's children's weights.
func (i *Indicator) WeightSum() float64 {
	var sum float64
	for _, c := range i.children {
		sum += c.weight
	}
	return sum
}
