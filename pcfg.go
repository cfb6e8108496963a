package pcfg

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// PCFG consists a list of PCFG rules as written in a grammar file. It has to
// be converted to a CNFGrammar before parsing.
type PCFG struct {
	Rules   []*Rule
	Exports map[Symbol]bool

	// Start is the symbol a sentence is derived from, RootSymbol unless set
	// otherwise
	Start Symbol
}

// NewPCFG creates an empty grammar rooted at RootSymbol
func NewPCFG() *PCFG {
	return &PCFG{
		Rules:   []*Rule{},
		Exports: map[Symbol]bool{},
		Start:   RootSymbol,
	}
}

//
// Here are the functions that used to convert PCFG to CNF
// According to paper: http://www.cs.nyu.edu/courses/fall07/V22.0453-001/cnf.pdf
//

// ParsePCFG parses grammar from string
func ParsePCFG(grammarText string) (*PCFG, error) {
	grammar := NewPCFG()
	for i, line := range strings.Split(grammarText, "\n") {
		line = strings.TrimSpace(line)

		// Exports command
		if strings.HasPrefix(line, ";!exports:") {
			for _, export := range strings.Fields(line[len(";!exports:"):]) {
				symbol := Symbol(export)
				if !symbol.IsValid() || symbol.IsTerminal() {
					return nil, errors.Errorf(
						"ParsePCFG: line %d: unexpected export symbol: %s",
						i+1,
						symbol)
				}
				grammar.Exports[symbol] = true
			}
		}

		// Comments
		if line == "" || line[0] == ';' {
			continue
		}

		rules, err := ParseRule(line)
		if err != nil {
			return nil, errors.Wrapf(err, "ParsePCFG: line %d", i+1)
		}
		grammar.Rules = append(grammar.Rules, rules...)
	}
	return grammar, nil
}

// String prints one rule per line
func (g *PCFG) String() string {
	var b strings.Builder
	for _, rule := range g.Rules {
		b.WriteString(rule.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// debugStep logs the rules after a conversion step
func (g *PCFG) debugStep(step string) {
	if debugEnabled() {
		log().Debugf("======= %s =======\n%s", step, g.String())
	}
}

// ConvertToCNF converts the grammar to Chomsky normal form. The rules of g
// are rewritten in place.
func (g *PCFG) ConvertToCNF() (*CNFGrammar, error) {
	g.debugStep("Original Grammar")
	g.normalizeWeight()
	g.addTermVariables()
	g.debugStep("Add Term Variables")
	g.reduceHigherRules()
	g.debugStep("Reduce Higher Rules")
	g.removeNullRules()
	g.debugStep("Remove Null Rules")
	g.removeStrongComponents()
	g.debugStep("Remove Strong Components")
	g.removeUnitRules()
	g.debugStep("Remove Unit Rules")

	cnfGrammar := NewCNFGrammar()
	cnfGrammar.SetStartSymbol(g.Start)
	for _, rule := range g.Rules {
		if err := cnfGrammar.AddRule(rule); err != nil {
			return nil, errors.Wrap(err, "ConvertToCNF")
		}
	}

	exports := make([]Symbol, 0, len(g.Exports))
	for export := range g.Exports {
		exports = append(exports, export)
	}
	slices.Sort(exports)
	for _, export := range exports {
		cnfGrammar.AddExportSymbol(export)
	}

	stats := cnfGrammar.Stats()
	log().Infof("converted grammar: %d symbols, %d terminal rules, %d binary rules",
		stats.Symbols, stats.TerminalRules, stats.BinaryRules)
	return cnfGrammar, nil
}

// normalizeWeight normalize the weight of rule. Make sure that the sum of weight
// from the same source symbol is 1.0
func (g *PCFG) normalizeWeight() {
	weights := map[Symbol]float64{}
	for _, rule := range g.Rules {
		weights[rule.Left] += rule.Weight
	}
	for _, rule := range g.Rules {
		if total := weights[rule.Left]; total > 0 {
			rule.Weight /= total
		}
	}
}

// addTermVariables eliminiates terminal symbols except in right hand sides of size 1
func (g *PCFG) addTermVariables() {
	termRulesCount := 0
	terminalSymbols := map[Symbol]Symbol{}
	for _, rule := range g.Rules {
		if rule.IsUnary() {
			// Expect in right hand sides of size 1
			continue
		}
		for i, symbol := range rule.Right {
			if symbol.IsTerminal() {
				nonTerminalSymbol, ok := terminalSymbols[symbol]
				if !ok {
					// Add the corresponded non-terminal symbol if not exist
					nonTerminalSymbol = InternalSymbol(
						fmt.Sprintf("t_%s_%d", symbol.Text(), termRulesCount))
					terminalSymbols[symbol] = nonTerminalSymbol
				}
				rule.Right[i] = nonTerminalSymbol
				termRulesCount++
			}
		}
	}

	// Add each nonTerminalSymbol -> symbol rule
	terminals := make([]Symbol, 0, len(terminalSymbols))
	for symbol := range terminalSymbols {
		terminals = append(terminals, symbol)
	}
	slices.Sort(terminals)
	for _, symbol := range terminals {
		g.Rules = append(g.Rules, &Rule{
			Left:   terminalSymbols[symbol],
			Right:  []Symbol{symbol},
			Weight: 1.0})
	}
}

// reduceHigherRules converts rule with right-hand size larger than 2 into a set
// of binary rules
func (g *PCFG) reduceHigherRules() {
	binaryRules := []*Rule{}
	counts := map[Symbol]int{}
	for _, rule := range g.Rules {
		if rule.IsUnary() || rule.IsBinary() {
			binaryRules = append(binaryRules, rule)
			continue
		}

		// Numbering continues across rules sharing a left symbol so that
		// every chain gets its own helper symbols
		ruleText := rule.Left.Text()
		count := counts[rule.Left] + 1
		helper := func(n int) Symbol {
			return InternalSymbol(fmt.Sprintf("x_%s_%d", ruleText, n))
		}

		// Begin rule: U -> W_1 X_1
		binaryRules = append(binaryRules, &Rule{
			Left:   rule.Left,
			Right:  []Symbol{rule.Right[0], helper(count)},
			Weight: rule.Weight})

		// Middle rules: X_i -> W_i+1 X_i+1
		k := len(rule.Right) - 1
		for i := 1; i < k-1; i++ {
			binaryRules = append(binaryRules, &Rule{
				Left:   helper(count),
				Right:  []Symbol{rule.Right[i], helper(count + 1)},
				Weight: 1.0})
			count++
		}

		// End rule: X_k-1 -> W_k-1 W_k
		binaryRules = append(binaryRules, &Rule{
			Left:   helper(count),
			Right:  []Symbol{rule.Right[k-1], rule.Right[k]},
			Weight: 1.0})
		counts[rule.Left] = count
	}
	g.Rules = binaryRules
}

// Gets occurs-right map, that records which rules does a symbol occurs in the
// right side. assuming all rules are unary or binary
func (g *PCFG) occursRight() map[Symbol][]*Rule {
	occurs := map[Symbol][]*Rule{}
	for _, rule := range g.Rules {
		if rule.IsBinary() {
			// Rule: A -> BC
			B := rule.Right[0]
			C := rule.Right[1]
			occurs[B] = append(occurs[B], rule)
			if C != B {
				occurs[C] = append(occurs[C], rule)
			}
		} else if rule.IsUnary() && !rule.Right[0].IsTerminal() {
			// Rule: A -> B
			B := rule.Right[0]
			occurs[B] = append(occurs[B], rule)
		}
	}
	return occurs
}

// Gets occurs-left map. For every rule r: A -> BC, add occursLeft[A] = r
func (g *PCFG) occursLeft() map[Symbol][]*Rule {
	occurs := map[Symbol][]*Rule{}
	for _, rule := range g.Rules {
		occurs[rule.Left] = append(occurs[rule.Left], rule)
	}
	return occurs
}

// findNullables finds nullable symbols and its probabilities from grammar
func (g *PCFG) findNullables() map[Symbol]float64 {
	occurs := g.occursRight()
	nullable := map[Symbol]float64{}
	todo := []Symbol{}

	for _, rule := range g.Rules {
		if rule.IsUnary() && rule.Right[0] == EpsilonSymbol {
			// Rule: A -> <nil>
			nullable[rule.Left] = rule.Weight
			todo = append(todo, rule.Left)
		}
	}

	processed := map[*Rule]bool{}
	for len(todo) != 0 {
		var B Symbol
		B, todo = todo[0], todo[1:]
		for _, rule := range occurs[B] {
			if processed[rule] {
				continue
			}

			nullProb := rule.Weight
			for _, symbol := range rule.Right {
				nullProb *= nullable[symbol]
			}
			if nullProb > 0 {
				// Ok, this rule may be null
				nullable[rule.Left] += nullProb
				processed[rule] = true
				todo = append(todo, rule.Left)
			}
		}
	}

	return nullable
}

// removeNullRules remove null rules (A -> <nil>) from grammar
func (g *PCFG) removeNullRules() {
	nullables := g.findNullables()
	if len(nullables) == 0 {
		return
	}

	// Unary rules
	singleRules := map[[2]Symbol]*Rule{}
	for _, rule := range g.Rules {
		if rule.IsUnary() {
			singleRules[[2]Symbol{rule.Left, rule.Right[0]}] = rule
		}
	}

	// For rule A -> BC, if B is nullable, add new rule A -> C
	type ruleToAdd struct {
		A, B        Symbol
		Probability float64
	}
	rulesToAdd := []ruleToAdd{}
	for _, rule := range g.Rules {
		if !rule.IsBinary() {
			continue
		}

		A := rule.Left
		B := rule.Right[0]
		C := rule.Right[1]
		probability := rule.Weight
		if nullables[B] > 0 {
			ruleProb := probability * nullables[B]
			rulesToAdd = append(rulesToAdd, ruleToAdd{A, C, ruleProb})
			rule.Weight -= ruleProb
		}
		if nullables[C] > 0 {
			ruleProb := probability * nullables[C]
			rulesToAdd = append(rulesToAdd, ruleToAdd{A, B, ruleProb})
			rule.Weight -= ruleProb
		}
	}

	for _, rule := range rulesToAdd {
		if targetRule, ok := singleRules[[2]Symbol{rule.A, rule.B}]; ok {
			// A -> B already exists
			targetRule.Weight += rule.Probability
		} else {
			newRule := &Rule{
				Left:   rule.A,
				Right:  []Symbol{rule.B},
				Weight: rule.Probability}
			singleRules[[2]Symbol{rule.A, rule.B}] = newRule
			g.Rules = append(g.Rules, newRule)
		}
	}

	// Remove empty rules like A -> <nil>
	rules := []*Rule{}
	for _, rule := range g.Rules {
		if !(rule.IsUnary() && rule.Right[0] == EpsilonSymbol) {
			rules = append(rules, rule)
		}
	}
	g.Rules = rules

	// Only influences directly nullables symbols like A with A -> <nil>
	g.normalizeWeight()
}

// findStrongComponents finds the strong components formed by unary rules
// like A -> B, B -> A
func (g *PCFG) findStrongComponents() [][]Symbol {
	graph := NewDirectedGraph()
	for _, rule := range g.Rules {
		if rule.IsUnary() && !rule.Right[0].IsTerminal() {
			graph.Add(Vertex(rule.Left), Vertex(rule.Right[0]), rule.Weight)
		}
	}

	symbolComps := [][]Symbol{}
	for _, c := range graph.StrongComponents() {
		symbolComp := make([]Symbol, len(c))
		for i, v := range c {
			symbolComp[i] = Symbol(v)
		}
		symbolComps = append(symbolComps, symbolComp)
	}
	return symbolComps
}

// removeStrongComponent removes a strong component from graph
func (g *PCFG) removeStrongComponent(strongComponent []Symbol) {
	graph := NewDirectedGraph()
	occursLeft := g.occursLeft()
	occursRight := g.occursRight()

	component := map[Symbol]bool{}
	for _, s := range strongComponent {
		component[s] = true
	}

	// Construct the strong connected graph to compute shortest path
	for _, rule := range g.Rules {
		if component[rule.Left] && rule.IsUnary() && component[rule.Right[0]] {
			// Shortest path over -log(p) is the most probable chain
			graph.Add(Vertex(rule.Left), Vertex(rule.Right[0]), -math.Log(rule.Weight))
		}
	}
	distance := graph.Floyd()

	// Symbols only referenced inside the component
	internals := map[Symbol]bool{}

	// For symbols S, T in components. if P(S->T) = 0.2 after floyd algorithm,
	// and "T -> BC; 0.4". Then add rule "S -> BC; innerProb*0.2*0.4"
	for _, symbol := range strongComponent {
		isExternal := symbol == g.Start
		for _, rule := range occursRight[symbol] {
			if rule.IsBinary() || !component[rule.Left] {
				isExternal = true
				break
			}
		}
		if !isExternal {
			internals[symbol] = true
			continue
		}

		// innerProb is the probability that symbol transfer into its strong
		// connected components
		innerProb := 0.0
		for _, rule := range occursLeft[symbol] {
			if rule.IsUnary() && component[rule.Right[0]] {
				innerProb += rule.Weight
			}
		}
		for _, targetSymbol := range strongComponent {
			if symbol == targetSymbol {
				continue
			}
			transProb := math.Exp(-distance[Vertex(symbol)][Vertex(targetSymbol)])
			for _, targetRule := range occursLeft[targetSymbol] {
				if targetRule.IsUnary() && component[targetRule.Right[0]] {
					// Ignore the rules of this component
					continue
				}
				g.Rules = append(g.Rules, &Rule{
					Left:   symbol,
					Right:  targetRule.Right,
					Weight: innerProb * transProb * targetRule.Weight})
			}
		}
	}

	// Remove useless rules in this strong component, including
	//   - Strong connected rules, like A -> C in strong component [A, B, C]
	//   - Unreferenced rules outside the component
	rules := []*Rule{}
	for _, rule := range g.Rules {
		if rule.IsUnary() && component[rule.Left] && component[rule.Right[0]] {
			continue
		}
		if internals[rule.Left] {
			continue
		}
		rules = append(rules, rule)
	}
	g.Rules = rules
}

// removeStrongComponents removes all strong components from graph
func (g *PCFG) removeStrongComponents() {
	for _, component := range g.findStrongComponents() {
		log().Debugf("removing strong component %v", component)
		g.removeStrongComponent(component)
	}

	// Remove rules like X -> X
	rules := []*Rule{}
	for _, rule := range g.Rules {
		if rule.IsUnary() && rule.Left == rule.Right[0] {
			continue
		}
		rules = append(rules, rule)
	}
	g.Rules = rules
	g.normalizeWeight()
}

// Remove one unit rule (left -> right) from grammar
func (g *PCFG) removeUnitRule(left, right Symbol) {
	occursLeft := g.occursLeft()
	occursRight := g.occursRight()

	// Find rule: left -> right
	weight := 0.0
	for _, rule := range occursLeft[left] {
		if rule.IsUnary() && rule.Right[0] == right {
			weight = rule.Weight
			break
		}
	}

	// For any rule like "right -> BC; pr", add rule "left -> BC; weight * pr"
	for _, rule := range occursLeft[right] {
		path := []Symbol{right}
		path = append(path, rule.Path...)
		g.Rules = append(g.Rules, &Rule{
			Left:   left,
			Right:  rule.Right,
			Weight: rule.Weight * weight,
			Path:   path})
	}

	// Checks if right is only referenced by left
	isRightUseless := len(occursRight[right]) == 1 && right != g.Start

	// Remove rule left -> right. If isRightUseless == true, remove rules like
	// right -> ..
	rules := []*Rule{}
	for _, rule := range g.Rules {
		if rule.IsUnary() && rule.Left == left && rule.Right[0] == right {
			continue
		}
		if isRightUseless && rule.Left == right {
			continue
		}
		rules = append(rules, rule)
	}
	g.Rules = rules
}

// removeUnitRules removes unit rules like A -> B, B -> C, starting from the
// symbols that have no unit rules of their own
func (g *PCFG) removeUnitRules() {
	for {
		graph := NewDirectedGraph()
		for _, rule := range g.Rules {
			if rule.IsUnary() && !rule.Right[0].IsTerminal() {
				graph.Add(Vertex(rule.Left), Vertex(rule.Right[0]), rule.Weight)
			}
		}
		if len(graph.Vertices) == 0 {
			break
		}

		// Find a leaf rule
		graphT := graph.Transpose()
		leafVertex := graphT.TopologicalSort()[0]
		leafRules := graphT.DFS(leafVertex, map[Vertex]bool{})
		if len(leafRules) < 2 {
			break
		}

		left := leafRules[1]
		right := leafRules[0]
		log().Debugf("removeUnitRule: %s ::= %s", left, right)
		g.removeUnitRule(Symbol(left), Symbol(right))
	}
}
