package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/basin-health-service/internal/objective"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimumObjective(t *testing.T, target float64) *objective.Objective {
	t.Helper()
	obj, err := objective.New(objective.LessThan{}, objective.Metric{
		Start:  time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC),
		Target: objective.SingleValue{Value: target},
	})
	require.NoError(t, err)
	return obj
}

func series(values ...float64) []objective.Observation {
	out := make([]objective.Observation, len(values))
	for i, v := range values {
		out[i] = objective.Observation{Time: time.Date(2021, 6, 1+i, 0, 0, 0, 0, time.UTC), Value: v}
	}
	return out
}

func TestGauge_AllCompliantScoresFull(t *testing.T) {
	g := NewGauge("G1")
	do := NewParameter("DO", minimumObjective(t, 5))
	do.Append(series(6, 7, 8)...)
	g.AddParameter(do)

	b := g.Breakdown()
	require.True(t, b.Defined)
	assert.Zero(t, b.F1)
	assert.Zero(t, b.F2)
	assert.Zero(t, b.F3)
	assert.Equal(t, 100.0, b.Score)
}

func TestGauge_OneFailingParameterOfTwo(t *testing.T) {
	g := NewGauge("G1")
	failing := NewParameter("DO", minimumObjective(t, 5))
	failing.Append(series(4, 4)...)
	passing := NewParameter("Temp", minimumObjective(t, 1))
	passing.Append(series(10, 12)...)
	g.AddParameter(failing)
	g.AddParameter(passing)

	b := g.Breakdown()
	require.True(t, b.Defined)
	assert.Equal(t, 0.5, b.F1)
	assert.Equal(t, 0.5, b.F2)

	// Two excursions of 0.25 over four timesteps.
	nse := 0.5 / 4
	assert.InDelta(t, nse/(nse+1), b.F3, 1e-12)
	assert.InDelta(t, 100-math.Sqrt(0.5*nse/(nse+1)), b.Score, 1e-12)
}

func TestGauge_Undefined(t *testing.T) {
	t.Run("no parameters", func(t *testing.T) {
		assert.False(t, NewGauge("G").Breakdown().Defined)
	})

	t.Run("no applicable metric", func(t *testing.T) {
		g := NewGauge("G")
		p := NewParameter("DO", nil)
		p.Append(series(1, 2)...)
		g.AddParameter(p)
		assert.False(t, g.Breakdown().Defined)
	})

	t.Run("no observations", func(t *testing.T) {
		g := NewGauge("G")
		g.AddParameter(NewParameter("DO", minimumObjective(t, 5)))
		assert.False(t, g.Breakdown().Defined)
	})
}

func TestWaterQuality_MeanOfGauges(t *testing.T) {
	wq := NewWaterQuality()
	ind := NewLeaf("Water Quality Index", wq)

	_, ok := ind.Value()
	assert.False(t, ok, "no gauges")

	clean := NewGauge("clean")
	cleanDO := NewParameter("DO", minimumObjective(t, 5))
	cleanDO.Append(series(6)...)
	clean.AddParameter(cleanDO)
	wq.AddGauge(clean)

	v, ok := ind.Value()
	require.True(t, ok)
	assert.Equal(t, 100, v)

	empty := NewGauge("empty")
	wq.AddGauge(empty)
	v, ok = ind.Value()
	require.True(t, ok)
	assert.Equal(t, 100, v, "gauges without a score are skipped")

	g, ok := wq.Gauge("clean")
	require.True(t, ok)
	p, ok := g.Parameter("DO")
	require.True(t, ok)
	p.Replace(series(0))
	assert.True(t, ind.Stale(), "parameter mutation invalidates the indicator")

	// F1 = 1, nse = 5/0.00001 - 1 -> F3 just under 1.
	v, ok = ind.Value()
	require.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestParameter_SetObjectiveInvalidates(t *testing.T) {
	wq := NewWaterQuality()
	ind := NewLeaf("wq", wq)
	g := NewGauge("G")
	wq.AddGauge(g)
	p := NewParameter("DO", nil)
	p.Append(series(4)...)
	g.AddParameter(p)

	_, ok := ind.Value()
	assert.False(t, ok)

	p.SetObjective(minimumObjective(t, 5))
	assert.True(t, ind.Stale())
	_, ok = ind.Value()
	assert.True(t, ok)
	assert.Len(t, p.Series(), 1)
	assert.Len(t, wq.Gauges(), 1)
	assert.Len(t, g.Parameters(), 1)
}
