package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/domain"
)

var (
	observationsPath string
	outputFormat     string
	fixedTime        string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Apply a JSON-lines observation file and print the resulting snapshot",
	Long: `Reads one observation record per line (the same JSON the service consumes
from Kafka), applies them to a fresh model and prints the snapshot.
Invalid lines and observations the model rejects are reported on stderr.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var opts []basin.Option
		if fixedTime != "" {
			at, err := time.Parse(time.RFC3339, fixedTime)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			clock := clockwork.NewFakeClockAt(at)
			domain.SetClock(clock)
			defer domain.SetClock(nil)
			opts = append(opts, basin.WithClock(clock))
		}

		model, err := loadModel(opts...)
		if err != nil {
			return err
		}

		in, closeIn, err := openInput(observationsPath)
		if err != nil {
			return err
		}
		defer closeIn()

		res, err := scoreObservations(model, in)
		if err != nil {
			return err
		}
		for _, p := range res.problems {
			fmt.Fprintln(cmd.ErrOrStderr(), p)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "applied %d of %d observations\n", res.applied, res.lines)

		return writeSnapshot(cmd.OutOrStdout(), model.Snapshot(), outputFormat)
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&observationsPath, "observations", "o", "-", "JSON-lines observation file, - for stdin")
	scoreCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "output format: json or tree")
	scoreCmd.Flags().StringVar(&fixedTime, "at", "", "RFC 3339 time used for received_at and computed_at")
	rootCmd.AddCommand(scoreCmd)
}

type scoreResult struct {
	lines    int
	applied  int
	problems []string
}

// scoreObservations applies every record in r to model.
func scoreObservations(model *basin.Model, r io.Reader) (scoreResult, error) {
	var res scoreResult
	err := eachRecord(r, func(line int, data []byte) {
		res.lines++
		obs, err := domain.ParseRawEvent(domain.RawEvent{Value: data})
		if err != nil {
			res.problems = append(res.problems, fmt.Sprintf("line %d: %v", line, err))
			return
		}
		if err := model.Apply(obs); err != nil {
			res.problems = append(res.problems, fmt.Sprintf("line %d: %v", line, err))
			return
		}
		res.applied++
	})
	return res, err
}

// eachRecord calls fn for every non-blank line of r that is not a # comment.
func eachRecord(r io.Reader, fn func(line int, data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fn(n, []byte(text))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading observations: %w", err)
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening observations: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeSnapshot(w io.Writer, snap basin.Snapshot, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "tree":
		renderTree(w, snap.Root, true)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
