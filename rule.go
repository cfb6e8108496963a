package pcfg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Symbol represents a grammar category, both terminal and non-terminal. The
// parsing engine treats it as an opaque comparable value; the text grammar
// format writes non-terminals as <name>.
type Symbol string

// InternalSymbol creates an internal non-terminal symbol from name
func InternalSymbol(name string) Symbol {
	return Symbol("<__" + strings.TrimSpace(name) + ">")
}

// Nonterminal wraps a bare category name, like NP, into a non-terminal symbol
func Nonterminal(name string) Symbol {
	return Symbol("<" + name + ">")
}

// The build-in symbols
const EpsilonSymbol = Symbol("<nil>")
const RootSymbol = Symbol("<root>")

var (
	validSymbolRe = regexp.MustCompile(`^(<\??[-\w]+>|[^<>"?|]+)$`)
	symbolTextRe  = regexp.MustCompile(`[^_A-Za-z0-9]+`)
)

// IsValid checks the symbol string is valid
func (s Symbol) IsValid() bool {
	return validSymbolRe.MatchString(string(s))
}

// IsTerminal checks if it is a terminal symbol, assuming s.IsValid() == true
func (s Symbol) IsTerminal() bool {
	if len(s) == 0 {
		return true
	}
	return s[0] != '<' || s == EpsilonSymbol || strings.HasPrefix(string(s), "<?")
}

// Name returns the symbol without its angle brackets, <NP> -> NP
func (s Symbol) Name() string {
	text := string(s)
	if len(text) > 1 && text[0] == '<' && text[len(text)-1] == '>' {
		return text[1 : len(text)-1]
	}
	return text
}

// Text return the text in Symbol, the text should be [_A-Za-z0-9] only, like
//
//	<city-name> -> "city_name"
//	<?time_s0> -> "time_s0"
//	weather -> "weather"
//	上海 -> "_"
func (s Symbol) Text() string {
	text := string(s)
	if strings.HasPrefix(text, "<?") {
		text = text[2 : len(text)-1]
	} else if len(text) > 0 && text[0] == '<' {
		text = text[1 : len(text)-1]
	}
	return symbolTextRe.ReplaceAllString(text, "_")
}

// Rule represents a PCFG rule
type Rule struct {
	Left   Symbol
	Right  []Symbol
	Weight float64

	// Path is the derive path from right symbols to left symbols
	// It will have values only after some post-processing steps
	// For example, after PCFG to CNF, rule A->B, B->C, C->DE will merged into
	// a single rule A->DE and the path is (B C)
	Path []Symbol
}

// IsBinary returns true if it's a binary rule, like A -> BC
func (r *Rule) IsBinary() bool {
	return len(r.Right) == 2
}

// IsUnary returns true if it's a unary rule, like A -> B
func (r *Rule) IsUnary() bool {
	return len(r.Right) == 1
}

// ParseRule parse rule from string
// The rule would be like:
//
//	<weather-1> ::= "weather" "in" <city-name>, 0.7 | <city-name> weather, 0.3
//
// Then returns
//
//	[{"<weather-1>", ["weather", "in", "<city-name>"], 0.7},
//	 {"<weather-1>", ["<city-name>", "weather"], 0.3}]
func ParseRule(ruleText string) ([]*Rule, error) {
	fields := strings.Split(ruleText, "::=")
	if len(fields) != 2 {
		return nil, errors.Errorf("ParseRule: unexpected number of ::= token in '%s'", ruleText)
	}

	// Left part
	leftSymbol := Symbol(strings.TrimSpace(fields[0]))
	if !leftSymbol.IsValid() || leftSymbol.IsTerminal() {
		return nil, errors.Errorf("ParseRule: '%s': terminal symbol in the left", ruleText)
	}

	// Right part
	rules := []*Rule{}
	for _, right := range strings.Split(fields[1], "|") {
		rule := &Rule{Left: leftSymbol, Weight: 1.0}

		parts := strings.Split(strings.TrimSpace(right), ";")
		switch len(parts) {
		case 1:
		case 2:
			weightText := strings.TrimSpace(parts[1])
			weight, err := strconv.ParseFloat(weightText, 64)
			if err != nil {
				return nil, errors.Errorf(
					"ParseRule: float expected but '%s' found in '%s'",
					weightText,
					ruleText)
			}
			rule.Weight = weight
		default:
			return nil, errors.Errorf("ParseRule: unexpected ';' token in '%s'", ruleText)
		}

		for _, symbolString := range strings.Fields(parts[0]) {
			symbol := Symbol(symbolString)
			if !symbol.IsValid() {
				return nil, errors.Errorf("ParseRule: unexpected '%s' in '%s'", symbolString, ruleText)
			}
			rule.Right = append(rule.Right, symbol)
		}
		if len(rule.Right) == 0 {
			return nil, errors.Errorf("ParseRule: empty alternative in '%s'", ruleText)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// String converts rule to string format
func (r *Rule) String() string {
	s := fmt.Sprintf(
		"%s ::= %s ; %.3f",
		string(r.Left),
		joinSymbols(r.Right),
		r.Weight)
	if r.Path != nil {
		s += fmt.Sprintf(" (%s)", joinSymbols(r.Path))
	}
	return s
}

func joinSymbols(symbols []Symbol) string {
	texts := make([]string, len(symbols))
	for i, symbol := range symbols {
		texts[i] = string(symbol)
	}
	return strings.Join(texts, " ")
}
