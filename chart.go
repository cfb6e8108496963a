package pcfg

import (
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how competing derivations of one symbol over one span are
// resolved
type Mode int

const (
	// ModeAuto picks ModeViterbi for grammars that report Weighted() == true
	// and ModeExhaustive for every other grammar
	ModeAuto Mode = iota

	// ModeViterbi keeps the most probable derivation per symbol per cell
	ModeViterbi

	// ModeExhaustive keeps every derivation
	ModeExhaustive
)

var modeNames = []string{"auto", "viterbi", "exhaustive"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode converts the name of a mode back to the Mode
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(i), nil
		}
	}
	return ModeAuto, errors.Errorf("unknown mode '%s'", name)
}

// Entry is one derivation of Symbol over the tokens [Start, End). A leaf
// holds the token it was derived from, an internal entry holds its two
// children: Left covers [Start, k) and Right covers [k, End).
type Entry struct {
	Symbol     Symbol
	Start, End int

	Token       Token
	Left, Right *Entry

	// Path is the chain of unit rules between Symbol and the children
	Path []Symbol

	// LogProb is the natural log of the probability of the whole derivation
	LogProb float64
}

// IsLeaf returns true if the entry derives a single token
func (e *Entry) IsLeaf() bool {
	return e.Left == nil
}

// Probability of the derivation
func (e *Entry) Probability() float64 {
	return math.Exp(e.LogProb)
}

// Split returns the boundary between the children, or -1 for a leaf
func (e *Entry) Split() int {
	if e.IsLeaf() {
		return -1
	}
	return e.Left.End
}

// Tokens returns the leaves of the derivation from left to right
func (e *Entry) Tokens() []Token {
	tokens := make([]Token, 0, e.End-e.Start)
	var walk func(e *Entry)
	walk = func(e *Entry) {
		if e.IsLeaf() {
			tokens = append(tokens, e.Token)
			return
		}
		walk(e.Left)
		walk(e.Right)
	}
	walk(e)
	return tokens
}

// String returns the derivation in one-line bracketed form, like
// (S (NP she) (VP (V eats) (NP fish)))
func (e *Entry) String() string {
	var b strings.Builder
	e.writeTo(&b)
	return b.String()
}

func (e *Entry) writeTo(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(string(e.Symbol))
	for _, s := range e.Path {
		b.WriteString(" (")
		b.WriteString(string(s))
	}
	if e.IsLeaf() {
		b.WriteByte(' ')
		b.WriteString(string(e.Token))
	} else {
		b.WriteByte(' ')
		e.Left.writeTo(b)
		b.WriteByte(' ')
		e.Right.writeTo(b)
	}
	b.WriteString(strings.Repeat(")", len(e.Path)+1))
}

// logProbTolerance is the largest difference of two summed log probabilities
// that still counts as a tie, log 0.1 and log 0.5 + log 0.2 differ by rounding
const logProbTolerance = 1e-9

// outranks reports whether a should replace b as the derivation kept for
// their symbol. Higher probability wins; probabilities equal within
// logProbTolerance are ordered by split point, then by the symbols of the
// children, then by unit path, so the winner does not depend on the order
// candidates are produced in.
func outranks(a, b *Entry) bool {
	if d := a.LogProb - b.LogProb; math.Abs(d) > logProbTolerance {
		return d > 0
	}
	if !a.IsLeaf() && !b.IsLeaf() {
		if ka, kb := a.Split(), b.Split(); ka != kb {
			return ka < kb
		}
		if a.Left.Symbol != b.Left.Symbol {
			return a.Left.Symbol < b.Left.Symbol
		}
		if a.Right.Symbol != b.Right.Symbol {
			return a.Right.Symbol < b.Right.Symbol
		}
	}
	return slices.Compare(a.Path, b.Path) < 0
}

// Cell holds the derivations found for the span [Start, End)
type Cell struct {
	Start, End int

	exhaustive bool
	symbols    []Symbol
	entries    map[Symbol][]*Entry
}

func newCell(start, end int, exhaustive bool) *Cell {
	return &Cell{
		Start:      start,
		End:        end,
		exhaustive: exhaustive,
		entries:    map[Symbol][]*Entry{},
	}
}

// Len returns the number of distinct symbols in the cell
func (c *Cell) Len() int {
	return len(c.symbols)
}

// Symbols returns the symbols of the cell in the order they were first added
func (c *Cell) Symbols() []Symbol {
	return slices.Clone(c.symbols)
}

// Entries returns the derivations of symbol, nil if there is none
func (c *Cell) Entries(symbol Symbol) []*Entry {
	return slices.Clone(c.entries[symbol])
}

// Best returns the most probable derivation of symbol, nil if there is none
func (c *Cell) Best(symbol Symbol) *Entry {
	var best *Entry
	for _, e := range c.entries[symbol] {
		if best == nil || outranks(e, best) {
			best = e
		}
	}
	return best
}

// All returns every derivation in the cell
func (c *Cell) All() []*Entry {
	all := []*Entry{}
	for _, s := range c.symbols {
		all = append(all, c.entries[s]...)
	}
	return all
}

// admits reports whether e would be kept by put
func (c *Cell) admits(e *Entry) bool {
	if c.exhaustive {
		return true
	}
	existing := c.entries[e.Symbol]
	return len(existing) == 0 || outranks(e, existing[0])
}

// put stores e, replacing the derivation of the same symbol in Viterbi mode
// when e outranks it. Reports whether e was kept.
func (c *Cell) put(e *Entry) bool {
	if !c.admits(e) {
		return false
	}
	c.store(e)
	return true
}

// store adds e without consulting the disambiguation policy, the caller has
// checked admits already
func (c *Cell) store(e *Entry) {
	existing, ok := c.entries[e.Symbol]
	if !ok {
		c.symbols = append(c.symbols, e.Symbol)
	}
	if c.exhaustive {
		c.entries[e.Symbol] = append(existing, e)
	} else if ok {
		existing[0] = e
	} else {
		c.entries[e.Symbol] = []*Entry{e}
	}
}

// Chart is the triangular CYK table of one sentence of n tokens
type Chart struct {
	n    int
	mode Mode

	// cells[width-1][start] is the cell of span [start, start+width)
	cells [][]*Cell
}

// NewChart creates an empty chart for n tokens. ModeAuto behaves as
// ModeViterbi, callers that know the grammar should resolve it first.
func NewChart(n int, mode Mode) *Chart {
	if mode == ModeAuto {
		mode = ModeViterbi
	}
	chart := &Chart{
		n:     n,
		mode:  mode,
		cells: make([][]*Cell, n),
	}
	for width := 1; width <= n; width++ {
		row := make([]*Cell, n-width+1)
		for start := range row {
			row[start] = newCell(start, start+width, mode == ModeExhaustive)
		}
		chart.cells[width-1] = row
	}
	return chart
}

// Len returns the number of tokens the chart covers
func (c *Chart) Len() int {
	return c.n
}

// Mode returns the disambiguation mode of the chart
func (c *Chart) Mode() Mode {
	return c.mode
}

// Get returns the cell of span [start, end). A span outside the chart gets an
// empty cell.
func (c *Chart) Get(start, end int) *Cell {
	if start < 0 || end > c.n || start >= end {
		return newCell(start, end, c.mode == ModeExhaustive)
	}
	return c.cells[end-start-1][start]
}

// Row returns the cells of all spans of the given width, ordered by start
func (c *Chart) Row(width int) []*Cell {
	if width < 1 || width > c.n {
		return nil
	}
	return c.cells[width-1]
}

// Put adds e to the cell of its span following the disambiguation mode of the
// chart. Reports whether e was kept.
func (c *Chart) Put(e *Entry) bool {
	if e.Start < 0 || e.End > c.n || e.Start >= e.End {
		return false
	}
	return c.cells[e.End-e.Start-1][e.Start].put(e)
}

// entryPool allocates entries in batches
const entryBatchSize = 4096

type entryPool struct {
	batch []Entry
	next  int
}

// get returns a zeroed entry from the pool
func (pool *entryPool) get() *Entry {
	if pool.next == len(pool.batch) {
		pool.batch = make([]Entry, entryBatchSize)
		pool.next = 0
	}
	e := &pool.batch[pool.next]
	pool.next++
	return e
}
