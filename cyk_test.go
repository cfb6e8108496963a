package pcfg

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// sheEatsFish: S -> NP VP, VP -> V NP, NP -> she | fish, V -> eats
func sheEatsFish() *CNFGrammar {
	g := NewCNFGrammar()
	g.AddBinary("S", "NP", "VP", 1, nil)
	g.AddBinary("VP", "V", "NP", 1, nil)
	g.AddTerminal("NP", "she", 1, nil)
	g.AddTerminal("NP", "fish", 1, nil)
	g.AddTerminal("V", "eats", 1, nil)
	return g
}

// attachment is the classic prepositional phrase attachment ambiguity. With
// weighted set, attaching to the noun phrase is preferred.
func attachment(weighted bool) *CNFGrammar {
	p := func(w float64) float64 {
		if weighted {
			return w
		}
		return 1
	}
	g := NewCNFGrammar()
	g.AddBinary("S", "NP", "VP", 1, nil)
	g.AddBinary("VP", "V", "NP", p(0.6), nil)
	g.AddBinary("VP", "VP", "PP", p(0.4), nil)
	g.AddBinary("NP", "NP", "PP", p(0.3), nil)
	g.AddBinary("PP", "P", "NP", 1, nil)
	g.AddTerminal("NP", "she", p(0.3), nil)
	g.AddTerminal("NP", "fish", p(0.2), nil)
	g.AddTerminal("NP", "chopsticks", p(0.2), nil)
	g.AddTerminal("V", "eats", 1, nil)
	g.AddTerminal("P", "with", 1, nil)
	return g
}

// binaryTrees: X -> X X, X -> a. A sentence of n tokens has Catalan(n-1)
// derivations.
func binaryTrees() *CNFGrammar {
	g := NewCNFGrammar()
	g.AddBinary("X", "X", "X", 1, nil)
	g.AddTerminal("X", "a", 1, nil)
	g.SetStartSymbol("X")
	return g
}

func bracketings(entries []*Entry) []string {
	s := make([]string, len(entries))
	for i, e := range entries {
		s[i] = e.String()
	}
	sort.Strings(s)
	return s
}

// requireSound checks the leaves of e spell tokens and every internal node is
// licensed by g
func requireSound(t *testing.T, g Grammar, e *Entry, tokens []Token) {
	require.Equal(t, tokens[e.Start:e.End], e.Tokens())
	var walk func(e *Entry)
	walk = func(e *Entry) {
		if e.IsLeaf() {
			found := false
			for _, m := range g.Terminal(e.Token) {
				found = found || m.Symbol == e.Symbol
			}
			require.True(t, found, "no terminal rule %s -> %s", e.Symbol, e.Token)
			return
		}
		require.Equal(t, e.Start, e.Left.Start)
		require.Equal(t, e.Left.End, e.Right.Start)
		require.Equal(t, e.End, e.Right.End)
		found := false
		for _, m := range g.BinaryRule(e.Left, e.Right) {
			found = found || m.Symbol == e.Symbol
		}
		require.True(t, found, "no rule %s -> %s %s", e.Symbol, e.Left.Symbol, e.Right.Symbol)
		walk(e.Left)
		walk(e.Right)
	}
	walk(e)
}

type CYKSuite struct {
	suite.Suite
}

func TestCYKSuite(t *testing.T) {
	suite.Run(t, new(CYKSuite))
}

// TestSimpleSentence parses the one sentence the toy grammar allows.
func (s *CYKSuite) TestSimpleSentence() {
	entries := Parse("she eats fish", sheEatsFish(), "")
	require.Len(s.T(), entries, 1)
	e := entries[0]
	s.Equal(Symbol("S"), e.Symbol)
	s.Equal(0, e.Start)
	s.Equal(3, e.End)
	s.Equal("(S (NP she) (VP (V eats) (NP fish)))", e.String())
	s.InDelta(1.0, e.Probability(), 1e-12)
}

// TestWrongOrder expects no parse for an ungrammatical order.
func (s *CYKSuite) TestWrongOrder() {
	s.Empty(Parse("eats she fish", sheEatsFish(), ""))
}

// TestCompetingRules keeps only the more probable of two rules over one span.
func (s *CYKSuite) TestCompetingRules() {
	g := NewCNFGrammar()
	g.AddBinary("NP", "D", "N", 0.7, nil)
	g.AddBinary("NP", "A", "N", 0.9, nil)
	g.AddTerminal("D", "big", 1, nil)
	g.AddTerminal("A", "big", 1, nil)
	g.AddTerminal("N", "dog", 1, nil)

	p := NewParser(g)
	s.Equal(ModeViterbi, p.Mode())
	entries := p.ParseSymbol("big dog", "NP")
	require.Len(s.T(), entries, 1)
	s.InDelta(0.9, entries[0].Probability(), 1e-12)
	s.Equal(Symbol("A"), entries[0].Left.Symbol)

	chart := p.Chart(g.Tokenize("big dog"))
	s.Len(chart.Get(0, 2).Entries("NP"), 1)
}

// TestEmptyInput returns nothing for any target.
func (s *CYKSuite) TestEmptyInput() {
	for _, target := range []Symbol{"", "S", "NP", "nothing"} {
		s.Empty(Parse("", sheEatsFish(), target))
		s.Empty(Parse("   ", attachment(true), target))
	}
}

// TestAmbiguityExhaustive returns both attachments as distinct trees.
func (s *CYKSuite) TestAmbiguityExhaustive() {
	g := attachment(false)
	p := NewParser(g)
	s.Equal(ModeExhaustive, p.Mode())

	entries := p.Parse("she eats fish with chopsticks")
	s.Equal([]string{
		"(S (NP she) (VP (V eats) (NP (NP fish) (PP (P with) (NP chopsticks)))))",
		"(S (NP she) (VP (VP (V eats) (NP fish)) (PP (P with) (NP chopsticks))))",
	}, bracketings(entries))
}

// TestAmbiguityViterbi picks the more probable attachment.
func (s *CYKSuite) TestAmbiguityViterbi() {
	g := attachment(true)
	entries := Parse("she eats fish with chopsticks", g, "S")
	require.Len(s.T(), entries, 1)
	// VP attachment: 0.4 * 0.6 vs NP attachment 0.6 * 0.3
	s.Equal("(S (NP she) (VP (VP (V eats) (NP fish)) (PP (P with) (NP chopsticks))))", entries[0].String())
	s.InDelta(0.3*0.4*0.6*0.2*0.2, entries[0].Probability(), 1e-12)
}

// TestUnknownTokenAndTarget yield empty results without errors.
func (s *CYKSuite) TestUnknownTokenAndTarget() {
	g := sheEatsFish()
	s.Empty(Parse("she eats chips", g, ""))
	s.Empty(Parse("she eats fish", g, "VP"))
	s.Empty(Parse("she eats fish", g, "Nope"))

	entries := Parse("eats fish", g, "VP")
	require.Len(s.T(), entries, 1)
	s.Equal("(VP (V eats) (NP fish))", entries[0].String())
}

// TestSingleToken extracts a derivation straight from the terminal row.
func (s *CYKSuite) TestSingleToken() {
	entries := Parse("fish", sheEatsFish(), "NP")
	require.Len(s.T(), entries, 1)
	s.True(entries[0].IsLeaf())
	s.Equal(Token("fish"), entries[0].Token)
}

// TestCompleteness counts all binary bracketings.
func (s *CYKSuite) TestCompleteness() {
	catalan := []int{1, 1, 2, 5, 14, 42, 132}
	g := binaryTrees()
	for n := 1; n <= 7; n++ {
		text := strings.TrimSpace(strings.Repeat("a ", n))
		entries := Parse(text, g, "")
		s.Len(entries, catalan[n-1], "n=%d", n)

		distinct := map[string]bool{}
		for _, e := range entries {
			distinct[e.String()] = true
			requireSound(s.T(), g, e, g.Tokenize(text))
		}
		s.Len(distinct, len(entries))
	}
}

// TestSoundness checks every returned derivation against the grammar.
func (s *CYKSuite) TestSoundness() {
	text := "she eats fish with chopsticks with chopsticks"
	for _, weighted := range []bool{false, true} {
		g := attachment(weighted)
		entries := Parse(text, g, "S")
		s.NotEmpty(entries)
		for _, e := range entries {
			requireSound(s.T(), g, e, g.Tokenize(text))
		}
	}
}

// TestPruningCorrectness compares Viterbi cells with every derivation the
// exhaustive chart holds.
func (s *CYKSuite) TestPruningCorrectness() {
	g := attachment(true)
	tokens := g.Tokenize("she eats fish with chopsticks with chopsticks")
	viterbi := NewParser(g, WithMode(ModeViterbi)).Chart(tokens)
	exhaustive := NewParser(g, WithMode(ModeExhaustive)).Chart(tokens)

	for width := 1; width <= len(tokens); width++ {
		for start := 0; start+width <= len(tokens); start++ {
			vc := viterbi.Get(start, start+width)
			ec := exhaustive.Get(start, start+width)
			s.ElementsMatch(ec.Symbols(), vc.Symbols())
			for _, sym := range vc.Symbols() {
				require.Len(s.T(), vc.Entries(sym), 1)
				best := vc.Best(sym)
				for _, e := range ec.Entries(sym) {
					s.GreaterOrEqual(best.LogProb+logProbTolerance, e.LogProb)
				}
				s.InDelta(ec.Best(sym).LogProb, best.LogProb, logProbTolerance)
			}
		}
	}
}

// TestDeterminismAcrossWorkers fills the same sentence serially and in
// parallel.
func (s *CYKSuite) TestDeterminismAcrossWorkers() {
	text := "she eats fish with chopsticks with chopsticks with chopsticks"
	for _, mode := range []Mode{ModeViterbi, ModeExhaustive} {
		g := attachment(true)
		want := bracketings(NewParser(g, WithMode(mode)).Parse(text))
		s.NotEmpty(want)
		for _, workers := range []int{2, 4, 16} {
			for i := 0; i < 3; i++ {
				got := bracketings(NewParser(g, WithMode(mode), WithWorkers(workers)).Parse(text))
				s.Equal(want, got, "mode=%s workers=%d", mode, workers)
			}
		}
	}
}

// TestMonotonicity checks a wider cell is never read before narrower ones
// are complete.
func (s *CYKSuite) TestMonotonicity() {
	g := &orderGrammar{CNFGrammar: binaryTrees()}
	p := NewParser(g, WithWorkers(4))
	entries := p.Parse("a a a a a a")
	s.Len(entries, 42)
	s.False(g.violated.Load())
}

// TestTieBreak pins the winner between equally probable derivations.
func (s *CYKSuite) TestTieBreak() {
	g := NewCNFGrammar()
	g.AddBinary("P", "X", "Y", 1, nil)
	g.AddBinary("Q", "Y", "Z", 1, nil)
	g.AddBinary("S", "P", "Z", 0.5, nil)
	g.AddBinary("S", "X", "Q", 0.5, nil)
	g.AddTerminal("X", "x", 1, nil)
	g.AddTerminal("Y", "y", 1, nil)
	g.AddTerminal("Z", "z", 1, nil)

	for _, workers := range []int{1, 4} {
		entries := NewParser(g, WithWorkers(workers)).Parse("x y z")
		require.Len(s.T(), entries, 1)
		s.Equal("(S (X x) (Q (Y y) (Z z)))", entries[0].String())
	}
}

// TestUndefinedProbability treats a missing probability as 1.
func (s *CYKSuite) TestUndefinedProbability() {
	g := &mapGrammar{
		terminals: map[Token][]Match{
			"she":  {{Symbol: "NP"}},
			"eats": {{Symbol: "V"}},
			"fish": {{Symbol: "NP", Probability: math.NaN()}},
		},
		binaries: map[[2]Symbol][]Match{
			{"NP", "VP"}: {{Symbol: "S"}},
			{"V", "NP"}:  {{Symbol: "VP", Probability: -1}},
		},
	}
	for _, mode := range []Mode{ModeAuto, ModeViterbi} {
		p := NewParser(g, WithMode(mode))
		s.Equal(DefaultStartSymbol, p.StartSymbol())
		entries := p.Parse("she eats fish")
		require.Len(s.T(), entries, 1)
		s.Equal(0.0, entries[0].LogProb)
	}
}

// TestContractOnlyGrammarIsUnweighted keeps every derivation for a grammar
// that cannot report whether it is weighted.
func (s *CYKSuite) TestContractOnlyGrammarIsUnweighted() {
	g := &mapGrammar{
		terminals: map[Token][]Match{"a": {{Symbol: "S"}}},
		binaries:  map[[2]Symbol][]Match{{"S", "S"}: {{Symbol: "S"}}},
	}
	s.Equal(ModeExhaustive, NewParser(g).Mode())

	s.Equal([]string{
		"(S (S (S a) (S a)) (S a))",
		"(S (S a) (S (S a) (S a)))",
	}, bracketings(Parse("a a a", g, "S")))
	s.Len(Parse("a a a a", g, ""), 5)

	s.Len(NewParser(g, WithMode(ModeViterbi)).Parse("a a a"), 1)
}

// TestRepeatedMatches inserts a repeated grammar answer once.
func (s *CYKSuite) TestRepeatedMatches() {
	g := &mapGrammar{
		terminals: map[Token][]Match{
			"a": {{Symbol: "A"}, {Symbol: "A"}, {Symbol: "A", Path: []Symbol{"B"}}},
		},
		binaries: map[[2]Symbol][]Match{
			{"A", "A"}: {{Symbol: "S"}, {Symbol: "S"}},
		},
	}
	p := NewParser(g, WithMode(ModeExhaustive))
	s.Len(p.Chart([]Token{"a"}).Get(0, 1).Entries("A"), 2)
	// 2 left derivations x 2 right derivations
	s.Len(p.Parse("a a"), 4)
}

// TestParseContextCancelled stops between rows.
func (s *CYKSuite) TestParseContextCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		p := NewParser(binaryTrees(), WithWorkers(workers))
		entries, err := p.ParseContext(ctx, "a a a", "")
		s.ErrorIs(err, context.Canceled)
		s.Nil(entries)
	}

	entries, err := NewParser(binaryTrees()).ParseContext(context.Background(), "a a a", "")
	s.NoError(err)
	s.Len(entries, 2)
}

// TestConcurrentParses shares one grammar across goroutines.
func (s *CYKSuite) TestConcurrentParses() {
	g := attachment(true)
	p := NewParser(g, WithWorkers(2))
	want := p.Parse("she eats fish with chopsticks")[0].String()

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			entries := p.Parse("she eats fish with chopsticks")
			if len(entries) != 1 || entries[0].String() != want {
				errs <- fmt.Errorf("unexpected result %v", entries)
				return
			}
			errs <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		s.NoError(<-errs)
	}
}
