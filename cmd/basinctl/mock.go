package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/domain"
)

var (
	mockOut           string
	mockDefinitionOut string
	mockSeed          uint64
	mockYear          int
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Generate a deterministic observation fixture for local runs and tests",
	Long: `Writes one JSON observation per line covering every observation type: daily
discharge for two stations, weekly water quality for two gauges, land cover
classes, governance survey answers and manual scores. The same seed and year
always produce the same file. --definition-out also writes a matching basin
definition with objectives for every generated parameter.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		recs := generateRecords(mockSeed, mockYear)

		if err := writeOutput(mockOut, cmd.OutOrStdout(), func(w io.Writer) error {
			return writeRecords(w, recs)
		}); err != nil {
			return fmt.Errorf("writing observations: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d observations\n", len(recs))

		if mockDefinitionOut != "" {
			data, err := yaml.Marshal(mockDefinition(basinName, mockYear))
			if err != nil {
				return fmt.Errorf("marshal definition: %w", err)
			}
			if err := writeFile(mockDefinitionOut, data); err != nil {
				return fmt.Errorf("writing definition: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote definition: %s\n", mockDefinitionOut)
		}
		return nil
	},
}

func init() {
	mockCmd.Flags().StringVar(&mockOut, "out", "-", "output path, - for stdout")
	mockCmd.Flags().StringVar(&mockDefinitionOut, "definition-out", "", "also write a matching basin definition YAML here")
	mockCmd.Flags().Uint64Var(&mockSeed, "seed", 42, "random seed")
	mockCmd.Flags().IntVar(&mockYear, "year", 2021, "calendar year the series cover")
	rootCmd.AddCommand(mockCmd)
}

var (
	mockStations = []string{"S1", "S2"}
	mockGauges   = []string{"G1", "G2"}
)

type coverClass struct {
	name   string
	weight float64
	share  float64
}

var mockCover = []coverClass{
	{"Forest", 100, 0.45},
	{"Wetland", 100, 0.10},
	{"Agriculture", 40, 0.35},
	{"Urban", 0, 0.10},
}

var mockManual = []string{
	basin.Groundwater, basin.BankModification, basin.FlowConnectivity,
	basin.SpeciesOfConcern, basin.InvasiveSpecies, basin.WaterSupply, basin.Biomass,
	basin.SedimentRegulation, basin.QualityRegulation, basin.DiseaseRegulation,
	basin.FloodRegulation, basin.ConservationAreas, basin.Recreation,
}

var mockSurveys = []string{
	basin.ResourceManagement, basin.RightsToUse, basin.IncentivesRegulations,
	basin.FinancialCapacity, basin.TechnicalCapacity, basin.InformationAccess,
	basin.DecisionMaking, basin.StrategicPlanning, basin.MonitoringLearning,
	basin.Enforcement, basin.BenefitDistribution, basin.WaterConflict,
}

// generateRecords builds the fixture in a fixed order so output is stable for
// a given seed.
func generateRecords(seed uint64, year int) []domain.RawRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := start.AddDate(1, 0, 0).Sub(start).Hours() / 24

	var recs []domain.RawRecord //nolint:prealloc // mixed generators

	for i, station := range mockStations {
		base := 120.0 * float64(i+1)
		for d := 0; d < int(days); d++ {
			day := start.AddDate(0, 0, d)
			seasonal := base * (1 + 0.6*math.Sin(2*math.Pi*float64(d)/days))
			natural := round2(seasonal * (0.9 + 0.2*rng.Float64()))
			// Reservoir release flattens the wet season.
			regulated := round2(natural * (0.75 + 0.25*math.Cos(2*math.Pi*float64(d)/days)) * (0.95 + 0.1*rng.Float64()))
			ts := day.Format("2006-01-02")
			recs = append(recs,
				domain.RawRecord{Type: string(domain.TypeDischarge), Station: station, Series: string(domain.SeriesUnregulated), Time: ts, Value: ptr(natural)},
				domain.RawRecord{Type: string(domain.TypeDischarge), Station: station, Series: string(domain.SeriesRegulated), Time: ts, Value: ptr(regulated)},
			)
		}
	}

	for _, gauge := range mockGauges {
		for day := start; day.Year() == year; day = day.AddDate(0, 0, 7) {
			ts := day.Add(10 * time.Hour).Format(time.RFC3339)
			recs = append(recs,
				domain.RawRecord{Type: string(domain.TypeWaterQuality), Gauge: gauge, Parameter: "DO", Time: ts, Value: ptr(round2(6.5 + 1.2*rng.NormFloat64()))},
				domain.RawRecord{Type: string(domain.TypeWaterQuality), Gauge: gauge, Parameter: "pH", Time: ts, Value: ptr(round2(7.4 + 0.6*rng.NormFloat64()))},
			)
		}
	}

	const basinArea = 795000.0
	for _, c := range mockCover {
		recs = append(recs, domain.RawRecord{
			Type:   string(domain.TypeLandCover),
			Class:  c.name,
			Area:   ptr(round2(basinArea * c.share)),
			Weight: ptr(c.weight),
		})
	}

	for _, name := range mockSurveys {
		for q := 1; q <= 3; q++ {
			for u := 1; u <= 4; u++ {
				rec := domain.RawRecord{
					Type:      string(domain.TypeSurveyAnswer),
					Indicator: name,
					Question:  fmt.Sprintf("%s question %d", name, q),
					User:      fmt.Sprintf("stakeholder-%d", u),
				}
				// About one answer in ten is skipped.
				if rng.IntN(10) != 0 {
					rec.Value = ptr(float64(1 + rng.IntN(5)))
				}
				recs = append(recs, rec)
			}
		}
	}

	for _, name := range mockManual {
		recs = append(recs, domain.RawRecord{
			Type:      string(domain.TypeManualScore),
			Indicator: name,
			Value:     ptr(float64(40 + rng.IntN(56))),
		})
	}

	return recs
}

// mockDefinition returns a definition whose objectives cover every generated
// water quality parameter.
func mockDefinition(name string, year int) basin.Definition {
	start := fmt.Sprintf("%d-01-01", year)
	end := fmt.Sprintf("%d-12-31", year)
	def := basin.Definition{Name: name}
	for _, g := range mockGauges {
		def.Objectives = append(def.Objectives,
			basin.ObjectiveDefinition{
				Gauge: g, Parameter: "DO", Function: "greater_than",
				Metrics: []basin.MetricDefinition{{Start: start, End: end, Value: ptr(5.0)}},
			},
			basin.ObjectiveDefinition{
				Gauge: g, Parameter: "pH", Function: "range",
				Metrics: []basin.MetricDefinition{{Start: start, End: end, Min: ptr(6.5), Max: ptr(8.5)}},
			},
		)
	}
	return def
}

func writeRecords(w io.Writer, recs []domain.RawRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range recs {
		if err := enc.Encode(recs[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func ptr[T any](v T) *T { return &v }
