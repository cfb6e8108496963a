package pcfg

import (
	"context"
)

// Options configures a Parser
//
// Mode        – how competing derivations are resolved, ModeAuto by default.
// StartSymbol – default target symbol, the grammar's start symbol if empty.
// Workers     – number of goroutines filling one chart row, 1 by default.
type Options struct {
	Mode        Mode
	StartSymbol Symbol
	Workers     int
}

// Option represents a functional option for configuring a Parser
type Option func(*Options)

// WithMode sets the disambiguation mode
func WithMode(mode Mode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithStartSymbol sets the symbol Parse looks for in the top cell
func WithStartSymbol(symbol Symbol) Option {
	return func(o *Options) {
		o.StartSymbol = symbol
	}
}

// WithWorkers sets how many cells of one chart row are filled concurrently.
// Values below 1 mean 1.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		o.Workers = max(workers, 1)
	}
}

// Parser parses sentences with a CYK chart over a Grammar. A Parser holds no
// per-sentence state and may be used from several goroutines.
type Parser struct {
	grammar Grammar
	mode    Mode
	start   Symbol
	workers int
}

// NewParser creates a parser for grammar
func NewParser(grammar Grammar, opts ...Option) *Parser {
	options := Options{Mode: ModeAuto, Workers: 1}
	for _, opt := range opts {
		opt(&options)
	}

	mode := options.Mode
	if mode == ModeAuto {
		// Only grammars that say they carry probabilities are pruned
		mode = ModeExhaustive
		if wg, ok := grammar.(WeightedGrammar); ok && wg.Weighted() {
			mode = ModeViterbi
		}
	}

	start := options.StartSymbol
	if start == "" {
		start = startSymbolOf(grammar)
	}

	return &Parser{
		grammar: grammar,
		mode:    mode,
		start:   start,
		workers: options.Workers,
	}
}

// Mode returns the disambiguation mode the parser resolved to
func (p *Parser) Mode() Mode {
	return p.mode
}

// StartSymbol returns the default target symbol
func (p *Parser) StartSymbol() Symbol {
	return p.start
}

// Grammar returns the grammar of the parser
func (p *Parser) Grammar() Grammar {
	return p.grammar
}

// Parse parses text and returns the derivations of the start symbol that
// cover the whole sentence. In Viterbi mode there is at most one. Returns nil
// when the sentence does not parse.
func (p *Parser) Parse(text string) []*Entry {
	return p.ParseSymbol(text, p.start)
}

// ParseSymbol is like Parse but looks for derivations of target
func (p *Parser) ParseSymbol(text string, target Symbol) []*Entry {
	return p.ParseTokens(p.grammar.Tokenize(text), target)
}

// ParseTokens parses an already tokenized sentence
func (p *Parser) ParseTokens(tokens []Token, target Symbol) []*Entry {
	entries, _ := p.parseTokens(context.Background(), tokens, target)
	return entries
}

// ParseContext is like ParseSymbol but stops between chart rows once ctx is
// done, returning ctx.Err()
func (p *Parser) ParseContext(ctx context.Context, text string, target Symbol) ([]*Entry, error) {
	return p.parseTokens(ctx, p.grammar.Tokenize(text), target)
}

// Chart fills and returns the whole chart of tokens, for inspection
func (p *Parser) Chart(tokens []Token) *Chart {
	chart, _ := fillChart(context.Background(), p.grammar, tokens, p.mode, p.workers)
	return chart
}

func (p *Parser) parseTokens(ctx context.Context, tokens []Token, target Symbol) ([]*Entry, error) {
	if target == "" {
		target = p.start
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	chart, err := fillChart(ctx, p.grammar, tokens, p.mode, p.workers)
	if err != nil {
		return nil, err
	}
	entries := chart.Get(0, len(tokens)).Entries(target)
	log().Debugf("parsed %d tokens: %d derivations of %s", len(tokens), len(entries), target)
	return entries, nil
}

// Parse parses text with grammar and returns the derivations of target
// covering the whole sentence. An empty target means the grammar's start
// symbol. The mode is chosen from the grammar as with ModeAuto.
func Parse(text string, grammar Grammar, target Symbol) []*Entry {
	return NewParser(grammar).ParseSymbol(text, target)
}
