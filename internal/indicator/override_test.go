package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverride_SupersedesComputedValue(t *testing.T) {
	leaf, _ := manual(t, "leaf", 30)
	other, _ := manual(t, "other", 70)
	root := NewComposite("root", weighted(leaf, 0.5), weighted(other, 0.5))

	v, _ := root.Value()
	assert.Equal(t, 50, v)

	require.NoError(t, leaf.SetOverride(90))
	ev, ok := leaf.EffectiveValue()
	require.True(t, ok)
	assert.Equal(t, 90, ev)
	computed, _ := leaf.Value()
	assert.Equal(t, 30, computed, "override does not touch the computed score")

	v, _ = root.Value()
	assert.Equal(t, 80, v)

	leaf.ClearOverride()
	ev, _ = leaf.EffectiveValue()
	assert.Equal(t, 30, ev)
	v, _ = root.Value()
	assert.Equal(t, 50, v)
}

func TestOverride_OnValuelessIndicator(t *testing.T) {
	empty := NewLeaf("empty", NewManualEntry())
	require.NoError(t, empty.SetOverride(0))

	v, ok := empty.EffectiveValue()
	assert.True(t, ok)
	assert.Zero(t, v)
	_, ok = empty.Value()
	assert.False(t, ok)
}

func TestOverride_RejectsOutOfRange(t *testing.T) {
	leaf, _ := manual(t, "leaf", 30)
	require.NoError(t, leaf.SetOverride(55))

	for _, bad := range []int{-1, 101, 1000} {
		err := leaf.SetOverride(bad)
		require.ErrorIs(t, err, ErrScoreOutOfRange)
		assert.Contains(t, err.Error(), "leaf")
	}

	got, ok := leaf.Override()
	require.True(t, ok)
	assert.Equal(t, 55, got, "prior override is kept")
}

func TestOverride_EmitsChange(t *testing.T) {
	leaf, _ := manual(t, "leaf", 30)
	calls := 0
	leaf.Subscribe(func(*Indicator) { calls++ })

	require.NoError(t, leaf.SetOverride(40))
	require.NoError(t, leaf.SetOverride(40))
	leaf.SetOverrideComment("field visit")
	leaf.ClearOverride()
	leaf.ClearOverride()

	assert.Equal(t, 3, calls, "no-op writes do not signal")
	assert.Equal(t, "field visit", leaf.OverrideComment())
}

func TestOverridden(t *testing.T) {
	a, _ := manual(t, "a", 1)
	b, _ := manual(t, "b", 2)
	mid := NewComposite("mid", a, b)
	root := NewComposite("root", mid)

	require.NoError(t, b.SetOverride(10))
	require.NoError(t, mid.SetOverride(20))

	got := Overridden(root)
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].Name())
	assert.Equal(t, "b", got[1].Name())
}
