package pcfg

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Section headers of a treebank production export. They are informational,
// every line is classified by its own content.
var treebankSections = map[string]bool{
	"TERMINALS": true,
	"UNARIES":   true,
	"BINARIES":  true,
}

var productionProbRe = regexp.MustCompile(`\s*\[([-+0-9.eE]+)\]\s*$`)

// LoadTreebankGrammar reads productions extracted from a treebank, one per
// line:
//
//	TERMINALS
//	NN -> 'dog'
//	BINARIES
//	S -> NP VP
//	NP -> DT NP|<JJ-NN> [0.25]
//
// Quoted right hand sides are words, bare ones are categories. An optional
// trailing [p] gives the weight of the production, weights are normalized per
// category. Categories become non-terminals <CAT>; the empty category of the
// outermost treebank bracket becomes <root>, which is the start symbol when
// present (then <ROOT>, <TOP>, and finally <S>). Unary category rules are
// collapsed by the CNF conversion and reappear in CNFGrammar.Tree.
func LoadTreebankGrammar(r io.Reader) (*CNFGrammar, error) {
	pcfg := NewPCFG()
	lefts := map[Symbol]bool{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || treebankSections[line] {
			continue
		}

		rule, err := parseProduction(line)
		if err != nil {
			return nil, errors.Wrapf(err, "LoadTreebankGrammar: line %d", lineNo)
		}
		if rule == nil {
			log().Warningf("LoadTreebankGrammar: line %d: skipping production with unusable word: %s", lineNo, line)
			continue
		}
		lefts[rule.Left] = true
		if rule.Left != RootSymbol && !strings.Contains(string(rule.Left), "|<") {
			// Binarization helpers like NP|<DT-NN> stay hidden
			pcfg.Exports[rule.Left] = true
		}
		pcfg.Rules = append(pcfg.Rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "LoadTreebankGrammar")
	}
	if len(pcfg.Rules) == 0 {
		return nil, errors.New("LoadTreebankGrammar: no productions")
	}

	pcfg.Start = Nonterminal(string(DefaultStartSymbol))
	for _, start := range []Symbol{RootSymbol, Nonterminal("ROOT"), Nonterminal("TOP")} {
		if lefts[start] {
			pcfg.Start = start
			break
		}
	}
	log().Infof("loaded %d treebank productions, start symbol %s", len(pcfg.Rules), pcfg.Start)
	return pcfg.ConvertToCNF()
}

// parseProduction parses one "LHS -> RHS..." line. It returns nil without an
// error for productions whose words cannot be represented as terminals.
func parseProduction(line string) (*Rule, error) {
	left, right, ok := strings.Cut(line, "->")
	if !ok {
		return nil, errors.Errorf("expected 'LHS -> RHS' but found '%s'", line)
	}

	rule := &Rule{Weight: 1.0}
	if m := productionProbRe.FindStringSubmatchIndex(right); m != nil {
		weight, err := strconv.ParseFloat(right[m[2]:m[3]], 64)
		if err != nil {
			return nil, errors.Errorf("bad probability in '%s'", line)
		}
		rule.Weight = weight
		right = right[:m[0]]
	}

	left = strings.TrimSpace(left)
	if left == "" {
		rule.Left = RootSymbol
	} else {
		rule.Left = Nonterminal(left)
	}

	items, err := splitProductionRight(right)
	if err != nil {
		return nil, errors.Wrapf(err, "in '%s'", line)
	}
	if len(items) == 0 {
		return nil, errors.Errorf("empty right hand side in '%s'", line)
	}
	for _, item := range items {
		if !item.quoted {
			rule.Right = append(rule.Right, Nonterminal(item.text))
			continue
		}
		word := Symbol(item.text)
		if item.text == "" || !word.IsTerminal() {
			return nil, nil
		}
		rule.Right = append(rule.Right, word)
	}
	return rule, nil
}

type productionItem struct {
	text   string
	quoted bool
}

// splitProductionRight splits the right hand side into categories and quoted
// words. Words may be written 'w', "w" or u'w' and use backslash escapes.
func splitProductionRight(right string) ([]productionItem, error) {
	items := []productionItem{}
	i := 0
	for i < len(right) {
		c := right[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '\'' || c == '"' || (c == 'u' && i+1 < len(right) && (right[i+1] == '\'' || right[i+1] == '"')):
			if c == 'u' {
				i++
			}
			word, n, err := readQuoted(right[i:])
			if err != nil {
				return nil, err
			}
			items = append(items, productionItem{text: word, quoted: true})
			i += n
		default:
			j := i
			for j < len(right) && right[j] != ' ' && right[j] != '\t' {
				j++
			}
			items = append(items, productionItem{text: right[i:j]})
			i = j
		}
	}
	return items, nil
}

// readQuoted reads a quoted word at the start of s and returns it unescaped
// along with the number of bytes consumed
func readQuoted(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, errors.Errorf("unterminated quote in %s", s)
}
