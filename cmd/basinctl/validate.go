package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/domain"
)

var validateObservations string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a basin definition and an observation file before deploying them",
	Long: `Runs the definition and every observation line through the same parsing and
routing the service uses, then reports each phase as PASS or FAIL.
Water quality parameters without an objective are reported too, since the
service scores them as undefined.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if definitionPath == "" && validateObservations == "" {
			return errors.New("nothing to validate: pass --definition and/or --observations")
		}

		var def *basin.Definition
		var phases []*phase
		if definitionPath != "" {
			var p *phase
			def, p = validateDefinition(definitionPath)
			phases = append(phases, p)
		}
		if validateObservations != "" {
			in, closeIn, err := openInput(validateObservations)
			if err != nil {
				return err
			}
			defer closeIn()
			obsPhases, err := validateRecords(in, def)
			if err != nil {
				return err
			}
			phases = append(phases, obsPhases...)
		}

		if !report(cmd.OutOrStdout(), phases) {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateObservations, "observations", "o", "", "JSON-lines observation file, - for stdin")
	rootCmd.AddCommand(validateCmd)
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateDefinition(path string) (*basin.Definition, *phase) {
	p := &phase{name: "Definition parses and builds"}
	def, err := basin.LoadDefinition(path)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	m := basin.NewModel(def.Name, basin.WithLogger(newLogger()))
	if err := m.ApplyDefinition(def); err != nil {
		p.errorf("%v", err)
		return nil, p
	}
	return def, p
}

// validateRecords checks every line in three phases: it parses, it routes to
// an indicator, and water quality parameters have an objective.
func validateRecords(r io.Reader, def *basin.Definition) ([]*phase, error) {
	parsing := &phase{name: "Observation records parse"}
	routing := &phase{name: "Observations route to an indicator"}
	coverage := &phase{name: "Water quality parameters have objectives"}

	model := basin.NewModel(basinName, basin.WithLogger(newLogger()))
	objectives := map[basin.ParameterKey]bool{}
	if def != nil {
		if err := model.ApplyDefinition(def); err != nil {
			return nil, fmt.Errorf("apply definition: %w", err)
		}
		built, err := def.BuildObjectives()
		if err != nil {
			return nil, fmt.Errorf("build objectives: %w", err)
		}
		for k := range built {
			objectives[k] = true
		}
	}

	seen := map[string]int{}
	uncovered := map[basin.ParameterKey]int{}
	err := eachRecord(r, func(line int, data []byte) {
		obs, err := domain.ParseRawEvent(domain.RawEvent{Value: data})
		if err != nil {
			parsing.errorf("line %d: %v", line, err)
			return
		}
		if first, dup := seen[obs.ID]; dup {
			parsing.errorf("line %d: duplicate of line %d (%s)", line, first, obs.ID)
			return
		}
		seen[obs.ID] = line

		if err := model.Apply(obs); err != nil {
			routing.errorf("line %d: %v", line, err)
			return
		}
		if obs.Type == domain.TypeWaterQuality {
			key := basin.ParameterKey{Gauge: obs.Gauge, Parameter: obs.Parameter}
			if !objectives[key] {
				if _, ok := uncovered[key]; !ok {
					uncovered[key] = line
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	keys := make([]basin.ParameterKey, 0, len(uncovered))
	for k := range uncovered {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return uncovered[keys[i]] < uncovered[keys[j]] })
	for _, k := range keys {
		coverage.errorf("line %d: no objective for %s/%s", uncovered[k], k.Gauge, k.Parameter)
	}

	return []*phase{parsing, routing, coverage}, nil
}

// report prints a PASS/FAIL table followed by the errors of failed phases.
func report(w io.Writer, phases []*phase) bool {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	allPassed := true
	for _, p := range phases {
		status := pass("PASS")
		if !p.passed() {
			status = fail(fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}
