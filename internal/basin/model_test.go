package basin

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/basin-health-service/internal/domain"
	"github.com/couchcryptid/basin-health-service/internal/indicator"
	"github.com/couchcryptid/basin-health-service/internal/weighting"
)

func newTestModel() *Model {
	return NewModel("test-basin", WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func fp(v float64) *float64 { return &v }

func ip(v int) *int { return &v }

func effective(t *testing.T, m *Model, name string) (int, bool) {
	t.Helper()
	n, err := m.Node(name)
	require.NoError(t, err)
	if n.EffectiveValue == nil {
		return 0, false
	}
	return *n.EffectiveValue, true
}

func TestModel_IndexUndefinedWithoutData(t *testing.T) {
	m := newTestModel()
	_, ok := m.Index()
	assert.False(t, ok)
}

func TestModel_SetManualScore(t *testing.T) {
	m := newTestModel()

	require.NoError(t, m.SetManualScore(Recreation, 80))
	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 80, idx)

	// Provisioning joins Cultural at equal weight.
	require.NoError(t, m.SetManualScore(WaterSupply, 60))
	idx, _ = m.Index()
	assert.Equal(t, 70, idx)

	t.Run("out of range", func(t *testing.T) {
		require.ErrorIs(t, m.SetManualScore(Recreation, 101), indicator.ErrScoreOutOfRange)
		v, _ := effective(t, m, Recreation)
		assert.Equal(t, 80, v)
	})

	t.Run("not a manual indicator", func(t *testing.T) {
		require.ErrorIs(t, m.SetManualScore(InformationAccess, 50), ErrUnknownIndicator)
		require.ErrorIs(t, m.SetManualScore("Nowhere", 50), ErrUnknownIndicator)
	})
}

func TestModel_Overrides(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.SetManualScore(Recreation, 80))

	require.NoError(t, m.SetOverride(EcosystemServices, 40, "expert review"))
	idx, _ := m.Index()
	assert.Equal(t, 40, idx)

	n, err := m.Node(EcosystemServices)
	require.NoError(t, err)
	require.NotNil(t, n.Value)
	assert.Equal(t, 80, *n.Value)
	assert.Equal(t, ip(40), n.Override)
	assert.Equal(t, "expert review", n.Comment)

	require.ErrorIs(t, m.SetOverride(EcosystemServices, -1, ""), indicator.ErrScoreOutOfRange)
	idx, _ = m.Index()
	assert.Equal(t, 40, idx, "rejected override leaves the prior one")

	require.NoError(t, m.ClearOverride(EcosystemServices))
	idx, _ = m.Index()
	assert.Equal(t, 80, idx)
	n, _ = m.Node(EcosystemServices)
	assert.Nil(t, n.Override)
	assert.Empty(t, n.Comment)

	require.ErrorIs(t, m.SetOverride("Nowhere", 10, ""), ErrUnknownIndicator)
	require.ErrorIs(t, m.ClearOverride("Nowhere"), ErrUnknownIndicator)
}

func TestModel_OverrideOnValuelessIndicator(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.SetOverride(Groundwater, 30, ""))
	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 30, idx)
}

func TestModel_ApplyDischarge(t *testing.T) {
	m := newTestModel()
	for month := time.January; month <= time.December; month++ {
		ts := time.Date(2020, month, 15, 0, 0, 0, 0, time.UTC)
		for _, s := range []domain.Series{domain.SeriesRegulated, domain.SeriesUnregulated} {
			require.NoError(t, m.Apply(domain.Observation{
				Type: domain.TypeDischarge, Station: "Kratie", Series: s, Time: ts, Value: fp(10),
			}))
		}
	}

	v, ok := effective(t, m, FlowDeviation)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	n, err := m.Node(FlowDeviation)
	require.NoError(t, err)
	require.Contains(t, n.Stations, "Kratie")
	assert.InDelta(t, 10, n.Stations["Kratie"].MeanDischarge, 1e-9)
}

func TestModel_ApplyWaterQuality(t *testing.T) {
	t.Run("without objective", func(t *testing.T) {
		m := newTestModel()
		require.NoError(t, m.Apply(domain.Observation{
			Type: domain.TypeWaterQuality, Gauge: "G1", Parameter: "DO",
			Time: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Value: fp(6),
		}))
		_, ok := effective(t, m, WaterQualityIndex)
		assert.False(t, ok)
	})

	t.Run("objective bound afterwards", func(t *testing.T) {
		m := newTestModel()
		require.NoError(t, m.Apply(domain.Observation{
			Type: domain.TypeWaterQuality, Gauge: "G1", Parameter: "DO",
			Time: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Value: fp(6),
		}))
		def, err := ParseDefinition([]byte(sampleDefinition))
		require.NoError(t, err)
		require.NoError(t, m.ApplyDefinition(def))

		v, ok := effective(t, m, WaterQualityIndex)
		require.True(t, ok)
		assert.Equal(t, 100, v)
	})

	t.Run("objective known up front", func(t *testing.T) {
		m := newTestModel()
		def, err := ParseDefinition([]byte(sampleDefinition))
		require.NoError(t, err)
		require.NoError(t, m.ApplyDefinition(def))

		for i, v := range []float64{6, 7} {
			require.NoError(t, m.Apply(domain.Observation{
				Type: domain.TypeWaterQuality, Gauge: "G1", Parameter: "DO",
				Time: time.Date(2021, 6, 1+i, 0, 0, 0, 0, time.UTC), Value: fp(v),
			}))
		}
		n, err := m.Node(WaterQualityIndex)
		require.NoError(t, err)
		require.Contains(t, n.Gauges, "G1")
		assert.True(t, n.Gauges["G1"].Defined)
		assert.Zero(t, n.Gauges["G1"].F1)
	})
}

func TestModel_ApplyLandCover(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.Apply(domain.Observation{Type: domain.TypeLandCover, Class: "forest", Area: fp(100), Weight: fp(100)}))
	require.NoError(t, m.Apply(domain.Observation{Type: domain.TypeLandCover, Class: "cropland", Area: fp(100), Weight: fp(20)}))

	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 60, idx)

	// Same class replaces the earlier item.
	require.NoError(t, m.Apply(domain.Observation{Type: domain.TypeLandCover, Class: "cropland", Area: fp(100), Weight: fp(60)}))
	idx, _ = m.Index()
	assert.Equal(t, 80, idx)
}

func TestModel_ApplySurveyAnswer(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.Apply(domain.Observation{
		Type: domain.TypeSurveyAnswer, Indicator: InformationAccess, Question: "Q1", User: "u-1", Value: fp(5),
	}))
	require.NoError(t, m.Apply(domain.Observation{
		Type: domain.TypeSurveyAnswer, Indicator: InformationAccess, Question: "Q1", User: "u-2",
	}))

	v, ok := effective(t, m, InformationAccess)
	require.True(t, ok)
	assert.Equal(t, 100, v, "skipped answers do not count")
}

func TestModel_ApplyManualScore(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.Apply(domain.Observation{Type: domain.TypeManualScore, Indicator: Recreation, Value: fp(70)}))
	v, ok := effective(t, m, Recreation)
	require.True(t, ok)
	assert.Equal(t, 70, v)
}

func TestModel_ApplyErrors(t *testing.T) {
	m := newTestModel()
	tests := []struct {
		name string
		obs  domain.Observation
		want error
	}{
		{"unknown type", domain.Observation{Type: "hail"}, ErrUnknownObservation},
		{"unknown indicator", domain.Observation{Type: domain.TypeManualScore, Indicator: "Nowhere", Value: fp(1)}, ErrUnknownIndicator},
		{"wrong kind", domain.Observation{Type: domain.TypeDischarge, Indicator: Recreation, Station: "S", Series: domain.SeriesRegulated, Value: fp(1)}, ErrUnknownIndicator},
		{"survey on manual leaf", domain.Observation{Type: domain.TypeSurveyAnswer, Indicator: Recreation, Question: "Q"}, ErrUnknownIndicator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, m.Apply(tt.obs), tt.want)
		})
	}
}

func TestModel_EditWeight(t *testing.T) {
	m := newTestModel()
	require.NoError(t, m.SetManualScore(Groundwater, 80))
	require.NoError(t, m.SetManualScore(Recreation, 40))
	idx, _ := m.Index()
	require.Equal(t, 60, idx)

	shares, err := m.EditWeight(RootName, EcosystemVitality, 50)
	require.NoError(t, err)
	assert.Equal(t, []WeightShare{
		{Name: EcosystemVitality, Percent: 50},
		{Name: EcosystemServices, Percent: 25},
		{Name: GovernanceStakeholder, Percent: 25},
	}, shares)

	// (80*0.5 + 40*0.25) / 0.75
	idx, _ = m.Index()
	assert.Equal(t, 67, idx)

	n, _ := m.Node(EcosystemVitality)
	assert.InDelta(t, 0.5, n.Weight, 1e-9)

	t.Run("unknown child", func(t *testing.T) {
		_, err := m.EditWeight(RootName, Recreation, 10)
		require.ErrorIs(t, err, ErrUnknownIndicator)
	})
	t.Run("unknown parent", func(t *testing.T) {
		_, err := m.EditWeight("Nowhere", Recreation, 10)
		require.ErrorIs(t, err, ErrUnknownIndicator)
	})
	t.Run("out of range", func(t *testing.T) {
		_, err := m.EditWeight(RootName, EcosystemVitality, 120)
		require.ErrorIs(t, err, weighting.ErrPercentOutOfRange)
	})
}

func likert(values ...int) []indicator.Answer {
	out := make([]indicator.Answer, len(values))
	for i, v := range values {
		out[i] = indicator.Answer{User: "u", Value: ip(v)}
	}
	return out
}

func TestModel_ImportGovernance(t *testing.T) {
	m := newTestModel()
	var signals int
	m.Subscribe(func() { signals++ })

	err := m.ImportGovernance([][]indicator.Question{
		{{Text: "Is there a basin plan?", Answers: likert(5)}},
		{{Text: "Are water rights recorded?", Answers: likert(3)}},
	})
	require.NoError(t, err)
	assert.Positive(t, signals)

	v, ok := effective(t, m, ResourceManagement)
	require.True(t, ok)
	assert.Equal(t, 100, v)
	v, _ = effective(t, m, RightsToUse)
	assert.Equal(t, 50, v)

	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 75, idx)

	t.Run("new subtree stays wired", func(t *testing.T) {
		before := signals
		require.NoError(t, m.Apply(domain.Observation{
			Type: domain.TypeSurveyAnswer, Indicator: InformationAccess, Question: "Q", Value: fp(1),
		}))
		assert.Greater(t, signals, before)
		idx, _ := m.Index()
		assert.Equal(t, 38, idx) // mean of Enabling Environment 75 and Stakeholder Engagement 0
	})

	t.Run("too many tranches", func(t *testing.T) {
		tranches := make([][]indicator.Question, 13)
		require.Error(t, m.ImportGovernance(tranches))
		v, _ := effective(t, m, ResourceManagement)
		assert.Equal(t, 100, v, "failed import leaves the tree untouched")
	})
}

func TestModel_AssignGovernance(t *testing.T) {
	m := newTestModel()
	unmatched := m.AssignGovernance(map[string][]indicator.Question{
		InformationAccess: {{Text: "Q", Answers: likert(4, 4)}},
		"Pollution Control": {{Text: "Q", Answers: likert(1)}},
		Recreation:          {{Text: "Q", Answers: likert(1)}},
	})
	assert.Equal(t, []string{"Pollution Control", Recreation}, unmatched)

	v, ok := effective(t, m, InformationAccess)
	require.True(t, ok)
	assert.Equal(t, 75, v)
}

func TestModel_ApplyDefinition(t *testing.T) {
	m := newTestModel()
	def, err := ParseDefinition([]byte(sampleDefinition))
	require.NoError(t, err)
	require.NoError(t, m.ApplyDefinition(def))

	assert.Equal(t, "mekong", m.Name())
	n, _ := m.Node(EcosystemVitality)
	assert.InDelta(t, 0.5, n.Weight, 1e-9)
	n, _ = m.Node(GovernanceStakeholder)
	assert.InDelta(t, 0.25, n.Weight, 1e-9)

	v, _ := effective(t, m, Recreation)
	assert.Equal(t, 70, v)
	v, _ = effective(t, m, BankModification)
	assert.Equal(t, 60, v)

	t.Run("unknown weight target", func(t *testing.T) {
		err := m.ApplyDefinition(&Definition{Weights: map[string]float64{"Nowhere": 1}})
		require.ErrorIs(t, err, ErrUnknownIndicator)
	})

	t.Run("unknown weight target leaves earlier weights alone", func(t *testing.T) {
		fresh := newTestModel()
		before, err := fresh.Node(EcosystemVitality)
		require.NoError(t, err)

		err = fresh.ApplyDefinition(&Definition{
			Name:    "renamed",
			Weights: map[string]float64{EcosystemVitality: 3, "Nowhere": 1},
		})
		require.ErrorIs(t, err, ErrUnknownIndicator)

		after, err := fresh.Node(EcosystemVitality)
		require.NoError(t, err)
		assert.InDelta(t, before.Weight, after.Weight, 1e-9)
		assert.Equal(t, "test-basin", fresh.Name())
	})
}

func TestModel_Unsubscribe(t *testing.T) {
	m := newTestModel()
	var signals int
	unsub := m.Subscribe(func() { signals++ })
	require.NoError(t, m.SetManualScore(Recreation, 10))
	got := signals
	assert.Positive(t, got)

	unsub()
	require.NoError(t, m.SetManualScore(Recreation, 20))
	assert.Equal(t, got, signals)
}
