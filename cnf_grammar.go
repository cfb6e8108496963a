package pcfg

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// CNFGrammar stores the grammar in Chomsky normal form. It implements
// Grammar. Once loaded it is only read, so one instance can serve any number
// of concurrent parses.
type CNFGrammar struct {
	// Map from symbol to its id
	SymbolIds map[Symbol]int

	// Map from symbolId to symbol
	Symbols []Symbol

	// Nonterminal symbols that exports to parsing tree
	Exports map[int]bool

	// Start is the symbol sentences are derived from
	Start Symbol

	// Lowercase makes Tokenize fold the text to lower case
	Lowercase bool

	// Map from terminal string to the rules deriving it, as answered by
	// Terminal
	terminalMatches map[string][]Match

	// Map from the symbol ids of the targets to the rules. For example, rule:
	// A -> B C. It maps (B, C) to the match of A
	binaryMatches map[[2]int][]Match

	weighted bool
}

// CNFStats counts the content of a CNFGrammar
type CNFStats struct {
	Symbols       int
	TerminalRules int
	BinaryRules   int
}

// NewCNFGrammar creates a new instance of CNFGrammar
func NewCNFGrammar() *CNFGrammar {
	return &CNFGrammar{
		SymbolIds:       map[Symbol]int{},
		Symbols:         []Symbol{},
		Exports:         map[int]bool{},
		terminalMatches: map[string][]Match{},
		binaryMatches:   map[[2]int][]Match{},
	}
}

// getSymbolId get the id of given symbol. If the symbol not exist in grammar
// insert a new one
func (g *CNFGrammar) getSymbolId(s Symbol) int {
	if symbolId, ok := g.SymbolIds[s]; ok {
		return symbolId
	}
	symbolId := len(g.Symbols)
	g.SymbolIds[s] = symbolId
	g.Symbols = append(g.Symbols, s)
	return symbolId
}

// addPath registers the symbols of a unit path and returns a private copy
func (g *CNFGrammar) addPath(path []Symbol) []Symbol {
	for _, s := range path {
		g.getSymbolId(s)
	}
	return slices.Clone(path)
}

// AddExportSymbol marks s as a symbol that shows up in parse trees
func (g *CNFGrammar) AddExportSymbol(s Symbol) {
	g.Exports[g.getSymbolId(s)] = true
}

// IsExported returns true if s is an exported symbol
func (g *CNFGrammar) IsExported(s Symbol) bool {
	id, ok := g.SymbolIds[s]
	return ok && g.Exports[id]
}

// SetStartSymbol sets the symbol sentences are derived from
func (g *CNFGrammar) SetStartSymbol(s Symbol) {
	g.Start = s
}

// AddRule adds a rule that is already in CNF: either A -> terminal or A -> B C
func (g *CNFGrammar) AddRule(rule *Rule) error {
	if rule.Left.IsTerminal() {
		return errors.Errorf("CNFGrammar.AddRule: terminal on the left of '%s'", rule)
	}
	switch {
	case rule.IsUnary() && rule.Right[0].IsTerminal() && rule.Right[0] != EpsilonSymbol:
		// It's a terminal rule, like <weather> ::= weather
		g.AddTerminal(rule.Left, string(rule.Right[0]), rule.Weight, rule.Path)
	case rule.IsBinary() && !rule.Right[0].IsTerminal() && !rule.Right[1].IsTerminal():
		g.AddBinary(rule.Left, rule.Right[0], rule.Right[1], rule.Weight, rule.Path)
	default:
		return errors.Errorf("CNFGrammar.AddRule: '%s' is not in CNF", rule)
	}
	return nil
}

// AddTerminal adds the rule source -> terminal. path lists the unit rules
// collapsed into it, outermost first.
func (g *CNFGrammar) AddTerminal(source Symbol, terminal string, probability float64, path []Symbol) {
	g.getSymbolId(source)
	g.terminalMatches[terminal] = append(g.terminalMatches[terminal], Match{
		Symbol:      source,
		Probability: probability,
		Path:        g.addPath(path),
	})
	g.noteProbability(probability)
}

// AddBinary adds the rule source -> first second
func (g *CNFGrammar) AddBinary(source, first, second Symbol, probability float64, path []Symbol) {
	g.getSymbolId(source)
	key := [2]int{g.getSymbolId(first), g.getSymbolId(second)}
	g.binaryMatches[key] = append(g.binaryMatches[key], Match{
		Symbol:      source,
		Probability: probability,
		Path:        g.addPath(path),
	})
	g.noteProbability(probability)
}

// noteProbability remembers whether the grammar uses real probabilities
func (g *CNFGrammar) noteProbability(p float64) {
	if p > 0 && p != 1 {
		g.weighted = true
	}
}

// Tokenize splits text at white space
func (g *CNFGrammar) Tokenize(text string) []Token {
	if g.Lowercase {
		text = strings.ToLower(text)
	}
	fields := strings.Fields(text)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token(f)
	}
	return tokens
}

// Terminal returns the symbols deriving token. The returned slice belongs to
// the grammar and must not be modified.
func (g *CNFGrammar) Terminal(token Token) []Match {
	return g.terminalMatches[string(token)]
}

// BinaryRule returns the symbols A of the rules A -> B C where B and C are the
// symbols of left and right. The returned slice belongs to the grammar and
// must not be modified.
func (g *CNFGrammar) BinaryRule(left, right *Entry) []Match {
	first, ok := g.SymbolIds[left.Symbol]
	if !ok {
		return nil
	}
	second, ok := g.SymbolIds[right.Symbol]
	if !ok {
		return nil
	}
	return g.binaryMatches[[2]int{first, second}]
}

// StartSymbol returns the symbol sentences are derived from
func (g *CNFGrammar) StartSymbol() Symbol {
	return g.Start
}

// Weighted returns true if any rule has a probability other than 1
func (g *CNFGrammar) Weighted() bool {
	return g.weighted
}

// Terminals returns every terminal string of the grammar in lexical order
func (g *CNFGrammar) Terminals() []string {
	terminals := make([]string, 0, len(g.terminalMatches))
	for t := range g.terminalMatches {
		terminals = append(terminals, t)
	}
	slices.Sort(terminals)
	return terminals
}

// Stats counts symbols and rules
func (g *CNFGrammar) Stats() CNFStats {
	stats := CNFStats{Symbols: len(g.Symbols)}
	for _, matches := range g.terminalMatches {
		stats.TerminalRules += len(matches)
	}
	for _, matches := range g.binaryMatches {
		stats.BinaryRules += len(matches)
	}
	return stats
}
