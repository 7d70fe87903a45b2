package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestLandCover(t *testing.T) {
	tests := []struct {
		name  string
		items []CoverageItem
		want  int
		ok    bool
	}{
		{"no items", nil, 0, false},
		{
			"area weighted",
			[]CoverageItem{
				{Class: "forest", Weight: f(100), Area: f(30)},
				{Class: "cropland", Weight: f(40), Area: f(60)},
				{Class: "urban", Weight: f(0), Area: f(10)},
			},
			54, true,
		},
		{
			"items missing weight or area are ignored",
			[]CoverageItem{
				{Class: "forest", Weight: f(100), Area: f(50)},
				{Class: "wetland", Area: f(50)},
				{Class: "grass", Weight: f(10)},
			},
			100, true,
		},
		{
			"zero total area",
			[]CoverageItem{{Class: "forest", Weight: f(100), Area: f(0)}},
			0, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLandCover()
			lc.SetItems(tt.items)
			got, ok := lc.ComputeIndicator()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLandCover_UpsertInvalidates(t *testing.T) {
	lc := NewLandCover()
	ind := NewLeaf("Land Cover Naturalness", lc)
	lc.Upsert(CoverageItem{Class: "forest", Weight: f(100), Area: f(10)})
	lc.Upsert(CoverageItem{Class: "urban", Weight: f(0), Area: f(10)})

	v, ok := ind.Value()
	require.True(t, ok)
	assert.Equal(t, 50, v)

	lc.Upsert(CoverageItem{Class: "urban", Weight: f(0), Area: f(30)})
	assert.True(t, ind.Stale())
	v, _ = ind.Value()
	assert.Equal(t, 25, v)
	assert.Len(t, lc.Items(), 2)
}
