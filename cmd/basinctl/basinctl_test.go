package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/domain"
)

func init() {
	color.NoColor = true
}

func fixture(t *testing.T) (*bytes.Buffer, basin.Definition) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, generateRecords(7, 2021)))
	return &buf, mockDefinition("mock", 2021)
}

func TestEachRecordSkipsBlankAndComments(t *testing.T) {
	in := "# header\n\n{\"a\":1}\n   \n{\"b\":2}\n"
	var lines []int
	var bodies []string
	require.NoError(t, eachRecord(strings.NewReader(in), func(line int, data []byte) {
		lines = append(lines, line)
		bodies = append(bodies, string(data))
	}))

	assert.Equal(t, []int{3, 5}, lines)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, bodies)
}

func TestScoreObservations(t *testing.T) {
	m := basin.NewModel("test", basin.WithLogger(newLogger()))
	in := strings.Join([]string{
		`{"type":"manual_score","indicator":"Recreation","value":70}`,
		`{"type":"manual_score","indicator":"Recreation","value":170}`,
		`{"type":"manual_score","indicator":"Nowhere","value":50}`,
		`not json`,
	}, "\n")

	res, err := scoreObservations(m, strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 4, res.lines)
	assert.Equal(t, 1, res.applied)
	require.Len(t, res.problems, 3)
	assert.True(t, strings.HasPrefix(res.problems[0], "line 2:"))
	assert.Contains(t, res.problems[1], "Nowhere")
	assert.True(t, strings.HasPrefix(res.problems[2], "line 4:"))

	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 70, idx)
}

func TestGenerateRecordsIsDeterministic(t *testing.T) {
	a := generateRecords(42, 2021)
	b := generateRecords(42, 2021)
	c := generateRecords(43, 2021)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	counts := map[string]int{}
	for _, r := range a {
		counts[r.Type]++
	}
	assert.Equal(t, 2*2*365, counts[string(domain.TypeDischarge)])
	assert.Equal(t, 2*2*53, counts[string(domain.TypeWaterQuality)])
	assert.Equal(t, len(mockCover), counts[string(domain.TypeLandCover)])
	assert.Equal(t, 12*3*4, counts[string(domain.TypeSurveyAnswer)])
	assert.Equal(t, len(mockManual), counts[string(domain.TypeManualScore)])
}

func TestMockFixtureScoresEveryIndicator(t *testing.T) {
	buf, def := fixture(t)
	m := basin.NewModel("mock", basin.WithLogger(newLogger()))
	require.NoError(t, m.ApplyDefinition(&def))

	res, err := scoreObservations(m, buf)
	require.NoError(t, err)
	assert.Empty(t, res.problems)
	assert.Equal(t, res.lines, res.applied)

	snap := m.Snapshot()
	require.NotNil(t, snap.Index)
	assert.GreaterOrEqual(t, *snap.Index, 0)
	assert.LessOrEqual(t, *snap.Index, 100)

	for _, name := range []string{basin.FlowDeviation, basin.WaterQualityIndex, basin.LandCover, basin.InformationAccess, basin.Recreation} {
		n, err := m.Node(name)
		require.NoError(t, err, name)
		assert.NotNil(t, n.Value, name)
	}
}

func TestMockDefinitionRoundTripsThroughYAML(t *testing.T) {
	data, err := yaml.Marshal(mockDefinition("mock", 2022))
	require.NoError(t, err)

	def, err := basin.ParseDefinition(data)
	require.NoError(t, err)
	objs, err := def.BuildObjectives()
	require.NoError(t, err)
	assert.Len(t, objs, len(mockGauges)*2)
	assert.Equal(t, "greater_than", objs[basin.ParameterKey{Gauge: "G2", Parameter: "DO"}].Function().Name())
}

func TestValidateRecords(t *testing.T) {
	buf, def := fixture(t)

	phases, err := validateRecords(buf, &def)
	require.NoError(t, err)
	for _, p := range phases {
		assert.True(t, p.passed(), "%s: %v", p.name, p.errors)
	}

	in := strings.Join([]string{
		`{"type":"water_quality","gauge":"G9","parameter":"DO","time":"2021-03-01","value":6}`,
		`{"type":"water_quality","gauge":"G9","parameter":"DO","time":"2021-03-01","value":6}`,
		`{"type":"survey_answer","indicator":"Recreation","question":"Q","value":3}`,
		`{"type":"discharge","station":"S1","series":"sideways","time":"2021-03-01","value":6}`,
	}, "\n")
	phases, err = validateRecords(strings.NewReader(in), &def)
	require.NoError(t, err)
	require.Len(t, phases, 3)

	parsing, routing, coverage := phases[0], phases[1], phases[2]
	require.Len(t, parsing.errors, 2)
	assert.Contains(t, parsing.errors[0], "duplicate of line 1")
	assert.True(t, strings.HasPrefix(parsing.errors[1], "line 4:"))
	require.Len(t, routing.errors, 1)
	assert.True(t, strings.HasPrefix(routing.errors[0], "line 3:"))
	assert.Equal(t, []string{"line 1: no objective for G9/DO"}, coverage.errors)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	ok := report(&buf, []*phase{
		{name: "first"},
		{name: "second", errors: []string{"line 2: bad"}},
	})

	assert.False(t, ok)
	out := buf.String()
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL (1 errors)")
	assert.Contains(t, out, "--- second ---\n  [1] line 2: bad")

	buf.Reset()
	assert.True(t, report(&buf, []*phase{{name: "only"}}))
}

func TestRenderTree(t *testing.T) {
	m := basin.NewModel("test", basin.WithLogger(newLogger()))
	require.NoError(t, m.SetManualScore(basin.Recreation, 70))
	require.NoError(t, m.SetOverride(basin.Groundwater, 20, "dry wells"))

	var buf bytes.Buffer
	renderTree(&buf, m.Snapshot().Root, true)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	assert.True(t, strings.HasPrefix(lines[0], basin.RootName+"  "))
	assert.Contains(t, buf.String(), "      "+basin.Recreation+"  50%  70  manual\n")
	assert.Contains(t, buf.String(), "      "+basin.Groundwater+"  50%  20 (override)  manual\n")
	assert.Contains(t, buf.String(), "      "+basin.InformationAccess+"  50%  -  governance\n")
	assert.NotContains(t, buf.String(), "composite")
}

func TestNewLoggerLevels(t *testing.T) {
	defer func() { verbose = false }()
	ctx := context.Background()

	tests := []struct {
		name    string
		verbose bool
		enabled slog.Level
		off     slog.Level
	}{
		{"quiet logs errors only", false, slog.LevelError, slog.LevelWarn},
		{"verbose logs debug", true, slog.LevelDebug, slog.LevelDebug - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose = tt.verbose
			logger := newLogger()
			assert.True(t, logger.Enabled(ctx, tt.enabled))
			assert.False(t, logger.Enabled(ctx, tt.off))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestWriteSnapshotRejectsUnknownFormat(t *testing.T) {
	m := basin.NewModel("test", basin.WithLogger(newLogger()))
	var buf bytes.Buffer

	require.NoError(t, writeSnapshot(&buf, m.Snapshot(), "json"))
	assert.Contains(t, buf.String(), `"basin": "test"`)

	assert.Error(t, writeSnapshot(&buf, m.Snapshot(), "xml"))
}
