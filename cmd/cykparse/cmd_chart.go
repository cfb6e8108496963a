package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/ling0322/pcfg"
	"github.com/spf13/cobra"
)

var (
	spanColor  = color.New(color.FgYellow).SprintFunc()
	startColor = color.New(color.FgHiCyan, color.Bold).SprintFunc()
)

func newChartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chart <sentence...>",
		Short: "Print every non-empty cell of the CYK chart of a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens := a.grammar.Tokenize(strings.Join(args, " "))
			chart := a.parser.Chart(tokens)
			fmt.Fprint(a.out, FormatChart(chart, a.parser.StartSymbol()))
			return nil
		},
	}
}

// FormatChart lists the cells of chart from the widest span down, one cell
// per line with the best probability of each symbol
func FormatChart(chart *pcfg.Chart, start pcfg.Symbol) string {
	var b strings.Builder
	for width := chart.Len(); width >= 1; width-- {
		for _, cell := range chart.Row(width) {
			if cell.Len() == 0 {
				continue
			}
			items := []string{}
			for _, s := range cell.Symbols() {
				name := string(s)
				if s == start && width == chart.Len() {
					name = startColor(name)
				}
				best := cell.Best(s)
				item := fmt.Sprintf("%s:%.4g", name, best.Probability())
				if n := len(cell.Entries(s)); n > 1 {
					item += fmt.Sprintf("(x%d)", n)
				}
				items = append(items, item)
			}
			fmt.Fprintf(&b, "%s %s\n",
				spanColor(fmt.Sprintf("[%d,%d)", cell.Start, cell.End)),
				strings.Join(items, " "))
		}
	}
	return b.String()
}
