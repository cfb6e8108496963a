package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/ling0322/pcfg"
	"gopkg.in/yaml.v2"
)

// SentenceResult is what the parse command reports for one sentence
type SentenceResult struct {
	Sentence string        `json:"sentence" yaml:"sentence"`
	Tokens   []string      `json:"tokens" yaml:"tokens"`
	Parses   []ParseResult `json:"parses" yaml:"parses"`
}

// ParseResult is one derivation of a sentence
type ParseResult struct {
	Probability float64    `json:"probability" yaml:"probability"`
	LogProb     float64    `json:"logprob" yaml:"logprob"`
	Bracketed   string     `json:"bracketed" yaml:"bracketed"`
	Tree        *pcfg.Node `json:"tree" yaml:"tree"`
}

func newSentenceResult(grammar *pcfg.CNFGrammar, sentence string, entries []*pcfg.Entry) SentenceResult {
	result := SentenceResult{
		Sentence: sentence,
		Tokens:   []string{},
		Parses:   []ParseResult{},
	}
	for _, token := range grammar.Tokenize(sentence) {
		result.Tokens = append(result.Tokens, string(token))
	}
	for _, e := range entries {
		result.Parses = append(result.Parses, ParseResult{
			Probability: e.Probability(),
			LogProb:     e.LogProb,
			Bracketed:   e.String(),
			Tree:        grammar.Tree(e).Node,
		})
	}
	return result
}

func ToText(result SentenceResult) string {
	if len(result.Parses) == 0 {
		return fmt.Sprintf("# %s\n(no parse)", result.Sentence)
	}
	parts := []string{}
	for i, p := range result.Parses {
		parts = append(parts, fmt.Sprintf("# %s [%d] p=%.6g\n%s", result.Sentence, i+1, p.Probability, p.Tree))
	}
	return strings.Join(parts, "\n")
}

func ToPrettyJson(result SentenceResult) (string, error) {
	s, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func ToPrettyColoredJson(result SentenceResult) (string, error) {
	f := prettyjson.NewFormatter()
	f.Indent = 2
	f.KeyColor = color.New(color.FgGreen)
	f.NullColor = color.New(color.Underline)
	f.NumberColor = color.New(color.FgYellow)
	f.StringColor = color.New(color.FgHiCyan)
	f.BoolColor = nil

	s, err := f.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func ToYaml(result SentenceResult) (string, error) {
	o, err := yaml.Marshal(result)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(o), "\n"), nil
}

// FormatResult renders result as text, json or yaml. Colors are only used
// for json when colorized is set and the terminal supports it.
func FormatResult(result SentenceResult, outputType string, colorized bool) (string, error) {
	switch outputType {
	case "text":
		return ToText(result), nil
	case "json":
		if colorized && !color.NoColor {
			return ToPrettyColoredJson(result)
		}
		return ToPrettyJson(result)
	case "yaml":
		return ToYaml(result)
	}
	return "", fmt.Errorf("unsupported formatting option (%s)", outputType)
}
