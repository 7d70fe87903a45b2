// Command basinctl scores basin observations offline and inspects basin
// definitions without a running service or Kafka.
//
// Usage:
//
//	basinctl tree --definition mekong.yaml
//	basinctl score --definition mekong.yaml --observations obs.jsonl
//	basinctl validate --definition mekong.yaml --observations obs.jsonl
//	basinctl mock --out obs.jsonl
package main

import (
	"fmt"
	"log/slog"
	"os"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/basin-health-service/internal/basin"
)

var (
	definitionPath string
	basinName      string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:           "basinctl",
	Short:         "Score and inspect river basin health indexes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&definitionPath, "definition", "d", "", "basin definition YAML file")
	rootCmd.PersistentFlags().StringVar(&basinName, "name", "basin", "basin name when the definition does not set one")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log model activity to stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text logs to stdout, so only errors are logged unless
// --verbose asks for model activity alongside command output.
func newLogger() *slog.Logger {
	level := "error"
	if verbose {
		level = "debug"
	}
	return sharedobs.NewLogger(level, "text")
}

// loadModel builds a model and applies --definition when given.
func loadModel(opts ...basin.Option) (*basin.Model, error) {
	opts = append([]basin.Option{basin.WithLogger(newLogger())}, opts...)
	m := basin.NewModel(basinName, opts...)
	if definitionPath == "" {
		return m, nil
	}
	def, err := basin.LoadDefinition(definitionPath)
	if err != nil {
		return nil, err
	}
	if err := m.ApplyDefinition(def); err != nil {
		return nil, fmt.Errorf("apply definition: %w", err)
	}
	return m, nil
}
