package pcfg

// Token is a unit of the input sentence produced by Grammar.Tokenize
type Token string

// DefaultStartSymbol is the target symbol used when neither the caller nor the
// grammar names one
const DefaultStartSymbol = Symbol("S")

// Match is one answer of a grammar lookup: the symbol derived and the
// probability of the production
type Match struct {
	Symbol Symbol

	// Probability of the production. Zero means the grammar defines none and
	// is read as 1.0
	Probability float64

	// Path holds the symbols of the unit rules collapsed into this production,
	// outermost first. Derivations with different paths are different trees.
	Path []Symbol
}

// Grammar is what the chart parser needs from a grammar. Implementations must
// be safe for concurrent readers, the parser never modifies them.
type Grammar interface {
	// Tokenize splits text into tokens. It must be deterministic.
	Tokenize(text string) []Token

	// Terminal returns the symbols that derive token, or nothing if the token
	// is unknown.
	Terminal(token Token) []Match

	// BinaryRule returns the symbols A of every rule A -> B C where B and C
	// are the symbols of left and right. Only the symbols may be inspected.
	BinaryRule(left, right *Entry) []Match
}

// StartSymbolGrammar is implemented by grammars that know their start symbol
type StartSymbolGrammar interface {
	StartSymbol() Symbol
}

// WeightedGrammar is implemented by grammars that can tell whether they carry
// production probabilities. Grammars without it are parsed unweighted unless
// the caller asks for ModeViterbi.
type WeightedGrammar interface {
	Weighted() bool
}

// startSymbolOf returns the start symbol of g, DefaultStartSymbol if g does
// not define one
func startSymbolOf(g Grammar) Symbol {
	if sg, ok := g.(StartSymbolGrammar); ok {
		if s := sg.StartSymbol(); s != "" {
			return s
		}
	}
	return DefaultStartSymbol
}
