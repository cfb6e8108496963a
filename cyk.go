package pcfg

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// cyk fills the chart of one sentence. It is created per parse and never
// shared between parses.
type cyk struct {
	grammar    Grammar
	chart      *Chart
	tokens     []Token
	exhaustive bool
	workers    int
}

// fillChart runs the CYK algorithm over tokens and returns the filled chart.
// Rows are filled by increasing span width; the cells of one row only read
// narrower rows, so with workers > 1 they are filled concurrently.
func fillChart(ctx context.Context, grammar Grammar, tokens []Token, mode Mode, workers int) (*Chart, error) {
	c := &cyk{
		grammar:    grammar,
		chart:      NewChart(len(tokens), mode),
		tokens:     tokens,
		exhaustive: mode == ModeExhaustive,
		workers:    max(workers, 1),
	}

	pool := &entryPool{}
	c.fillTerminals(pool)
	c.debugRow(1)

	pools := make(chan *entryPool, c.workers)
	pools <- pool
	for i := 1; i < c.workers; i++ {
		pools <- &entryPool{}
	}

	for width := 2; width <= len(tokens); width++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.fillRow(ctx, width, pools); err != nil {
			return nil, err
		}
		c.debugRow(width)
	}
	return c.chart, nil
}

// fillTerminals applies the terminal rules to every token, row 1 of the chart
func (c *cyk) fillTerminals(pool *entryPool) {
	for i, token := range c.tokens {
		cell := c.chart.Get(i, i+1)
		matches := c.grammar.Terminal(token)
		for j, m := range matches {
			if c.exhaustive && repeated(matches[:j], m) {
				continue
			}
			candidate := Entry{
				Symbol:  m.Symbol,
				Start:   i,
				End:     i + 1,
				Token:   token,
				Path:    m.Path,
				LogProb: logProb(m.Probability),
			}
			c.insert(cell, &candidate, pool)
		}
	}
}

// fillRow fills all cells of the given width. Each cell is written by exactly
// one goroutine so cells need no locking.
func (c *cyk) fillRow(ctx context.Context, width int, pools chan *entryPool) error {
	row := c.chart.Row(width)
	if c.workers == 1 || len(row) == 1 {
		pool := <-pools
		for _, cell := range row {
			c.fillCell(cell, pool)
		}
		pools <- pool
		return nil
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)
	for _, cell := range row {
		cell := cell
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pool := <-pools
			c.fillCell(cell, pool)
			pools <- pool
			return nil
		})
	}
	return group.Wait()
}

// fillCell combines every pair of adjacent sub-spans of cell at every split
// point. The grammar is asked once per pair of symbols; in exhaustive mode
// the answer is applied to every pair of derivations of those symbols.
func (c *cyk) fillCell(cell *Cell, pool *entryPool) {
	for k := cell.Start + 1; k < cell.End; k++ {
		left := c.chart.Get(cell.Start, k)
		right := c.chart.Get(k, cell.End)
		if left.Len() == 0 || right.Len() == 0 {
			continue
		}

		for _, ls := range left.symbols {
			leftEntries := left.entries[ls]
			for _, rs := range right.symbols {
				rightEntries := right.entries[rs]
				matches := c.grammar.BinaryRule(leftEntries[0], rightEntries[0])
				for j, m := range matches {
					if c.exhaustive && repeated(matches[:j], m) {
						continue
					}
					ruleLogProb := logProb(m.Probability)
					for _, l := range leftEntries {
						for _, r := range rightEntries {
							candidate := Entry{
								Symbol:  m.Symbol,
								Start:   cell.Start,
								End:     cell.End,
								Left:    l,
								Right:   r,
								Path:    m.Path,
								LogProb: ruleLogProb + l.LogProb + r.LogProb,
							}
							c.insert(cell, &candidate, pool)
						}
					}
				}
			}
		}
	}
}

// insert copies candidate into the pool and the cell if the disambiguation
// policy keeps it
func (c *cyk) insert(cell *Cell, candidate *Entry, pool *entryPool) {
	if !cell.admits(candidate) {
		return
	}
	e := pool.get()
	*e = *candidate
	cell.store(e)
}

// repeated reports whether m already occurs in matches
func repeated(matches []Match, m Match) bool {
	for _, p := range matches {
		if p.Symbol == m.Symbol && slices.Equal(p.Path, m.Path) {
			return true
		}
	}
	return false
}

// debugRow logs the symbols of every cell of a row
func (c *cyk) debugRow(width int) {
	if !debugEnabled() {
		return
	}
	reprs := []string{}
	for _, cell := range c.chart.Row(width) {
		symbols := make([]string, len(cell.symbols))
		for i, s := range cell.symbols {
			symbols[i] = string(s)
		}
		reprs = append(reprs, fmt.Sprintf("[%d: %s]", cell.Start, strings.Join(symbols, " ")))
	}
	log().Debugf("row %d: %s", width, strings.Join(reprs, " "))
}
