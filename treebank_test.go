package pcfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toyTreebank = `# productions extracted from a toy treebank
TERMINALS
DT -> 'the' [0.6]
DT -> u'a' [0.4]
NN -> 'dog'
NN -> "cat"
JJ -> 'big'
VBZ -> 'sees'
SYM -> '<'
UNARIES
 -> S
BINARIES
S -> NP VP
NP -> DT NN
NP -> DT NP|<JJ-NN>
NP|<JJ-NN> -> JJ NN
VP -> VBZ NP
`

func TestLoadTreebankGrammar(t *testing.T) {
	g, err := LoadTreebankGrammar(strings.NewReader(toyTreebank))
	require.NoError(t, err)
	assert.Equal(t, RootSymbol, g.StartSymbol())
	assert.True(t, g.IsExported("<NP>"))
	assert.False(t, g.IsExported("<NP|<JJ-NN>>"))
	assert.NotContains(t, g.Terminals(), "<")

	p := NewParser(g)
	assert.Equal(t, ModeViterbi, p.Mode())

	entries := p.Parse("the dog sees a cat")
	require.Len(t, entries, 1)
	// NP -> DT NN and NP -> DT NP|<JJ-NN> share the weight of NP
	assert.InDelta(t, 0.6*0.5*0.5*0.4*0.5*0.5, entries[0].Probability(), 1e-9)
	assert.Equal(t,
		"(<root> (<S> (<NP> (<DT> the) (<NN> dog)) (<VP> (<VBZ> sees) (<NP> (<DT> a) (<NN> cat)))))",
		entries[0].String())

	entries = p.Parse("the big dog sees a cat")
	require.Len(t, entries, 1)
	tree := g.Tree(entries[0])
	assert.Equal(t, []string{"the", "big", "dog", "sees", "a", "cat"}, tree.Leaves())
	np := tree.Children[0].Children[0]
	assert.Equal(t, "<NP>", np.Symbol)
	require.Len(t, np.Children, 3)
	assert.Equal(t, "<JJ>", np.Children[1].Symbol)

	assert.Empty(t, p.Parse("dog the sees a cat"))
}

func TestLoadTreebankStartSymbol(t *testing.T) {
	g, err := LoadTreebankGrammar(strings.NewReader("S -> NP VP\nNP -> 'she'\nVP -> 'runs'\n"))
	require.NoError(t, err)
	assert.Equal(t, Symbol("<S>"), g.StartSymbol())
	assert.Len(t, Parse("she runs", g, ""), 1)

	g, err = LoadTreebankGrammar(strings.NewReader("TOP -> S\nS -> NP VP\nNP -> 'she'\nVP -> 'runs'\n"))
	require.NoError(t, err)
	assert.Equal(t, Symbol("<TOP>"), g.StartSymbol())
	entries := Parse("she runs", g, "")
	require.Len(t, entries, 1)
	assert.Equal(t, "(<TOP> (<S> (<NP> she) (<VP> runs)))", entries[0].String())
}

func TestLoadTreebankErrors(t *testing.T) {
	_, err := LoadTreebankGrammar(strings.NewReader("TERMINALS\nDT -> 'the'\nS NP VP\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	_, err = LoadTreebankGrammar(strings.NewReader("NN -> 'dog\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")

	_, err = LoadTreebankGrammar(strings.NewReader("NN -> 'dog' [1.2.3]\n"))
	require.Error(t, err)

	_, err = LoadTreebankGrammar(strings.NewReader("NN ->\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty right hand side")

	_, err = LoadTreebankGrammar(strings.NewReader("# nothing\nTERMINALS\n\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no productions")
}

func TestParseProduction(t *testing.T) {
	rule, err := parseProduction(`POS -> '\'s' [0.5]`)
	require.NoError(t, err)
	assert.Equal(t, Symbol("<POS>"), rule.Left)
	assert.Equal(t, []Symbol{"'s"}, rule.Right)
	assert.Equal(t, 0.5, rule.Weight)

	rule, err = parseProduction(`NP -> DT NP|<JJ-NN>`)
	require.NoError(t, err)
	assert.Equal(t, []Symbol{"<DT>", "<NP|<JJ-NN>>"}, rule.Right)
	assert.Equal(t, 1.0, rule.Weight)

	rule, err = parseProduction(`-> S`)
	require.NoError(t, err)
	assert.Equal(t, RootSymbol, rule.Left)

	rule, err = parseProduction(`SYM -> '<'`)
	require.NoError(t, err)
	assert.Nil(t, rule)

	rule, err = parseProduction(`SYM -> ''`)
	require.NoError(t, err)
	assert.Nil(t, rule)
}
