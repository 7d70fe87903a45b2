package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/basin-health-service/internal/basin"
	"github.com/couchcryptid/basin-health-service/internal/indicator"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the indicator hierarchy with weights and current values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		model, err := loadModel()
		if err != nil {
			return err
		}
		renderTree(cmd.OutOrStdout(), model.Snapshot().Root, true)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}

// renderTree prints one line per indicator:
//
//	Freshwater Health  72
//	  Ecosystem Vitality  33%  68
func renderTree(w io.Writer, root basin.Node, isRoot bool) {
	writeNode(w, root, 0, isRoot)
}

func writeNode(w io.Writer, n basin.Node, depth int, isRoot bool) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	line := strings.Repeat("  ", depth) + n.Name
	if !isRoot {
		line += "  " + gray(fmt.Sprintf("%.0f%%", n.Weight*100))
	}
	line += "  " + scoreLabel(n.EffectiveValue)
	if n.Override != nil {
		line += " " + color.New(color.FgYellow).Sprint("(override)")
	}
	if n.Kind != indicator.KindComposite {
		line += "  " + gray(string(n.Kind))
	}
	fmt.Fprintln(w, line)

	for _, c := range n.Children {
		writeNode(w, c, depth+1, false)
	}
}

// scoreLabel colors a score by band: red below 40, yellow below 70, green
// otherwise.
func scoreLabel(v *int) string {
	if v == nil {
		return color.New(color.FgHiBlack).Sprint("-")
	}
	var c *color.Color
	switch {
	case *v < 40:
		c = color.New(color.FgRed)
	case *v < 70:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgGreen)
	}
	return c.Sprint(*v)
}
