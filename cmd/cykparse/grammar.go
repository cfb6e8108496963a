package main

import (
	"fmt"
	"os"

	"github.com/ling0322/pcfg"
)

// loadGrammar reads and compiles the grammar named by config
func loadGrammar(config Config) (*pcfg.CNFGrammar, error) {
	format, err := config.grammarFormat()
	if err != nil {
		return nil, err
	}

	var grammar *pcfg.CNFGrammar
	switch format {
	case "pcfg":
		data, err := os.ReadFile(config.Grammar)
		if err != nil {
			return nil, fmt.Errorf("read grammar: %w", err)
		}
		text, err := pcfg.ParsePCFG(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse grammar %s: %w", config.Grammar, err)
		}
		grammar, err = text.ConvertToCNF()
		if err != nil {
			return nil, fmt.Errorf("convert grammar %s: %w", config.Grammar, err)
		}
	case "treebank":
		f, err := os.Open(config.Grammar)
		if err != nil {
			return nil, fmt.Errorf("open grammar: %w", err)
		}
		defer f.Close()
		grammar, err = pcfg.LoadTreebankGrammar(f)
		if err != nil {
			return nil, fmt.Errorf("load grammar %s: %w", config.Grammar, err)
		}
	}
	grammar.Lowercase = config.Lowercase

	stats := grammar.Stats()
	log.Infof("grammar %s: %d symbols, %d terminal rules, %d binary rules, start %s",
		config.Grammar, stats.Symbols, stats.TerminalRules, stats.BinaryRules, grammar.StartSymbol())
	return grammar, nil
}

// newParser builds the parser for grammar following config
func newParser(grammar *pcfg.CNFGrammar, config Config) (*pcfg.Parser, error) {
	mode, err := pcfg.ParseMode(config.Mode)
	if err != nil {
		return nil, err
	}
	opts := []pcfg.Option{
		pcfg.WithMode(mode),
		pcfg.WithWorkers(config.Workers),
	}
	if config.Start != "" {
		opts = append(opts, pcfg.WithStartSymbol(pcfg.Symbol(config.Start)))
	}
	parser := pcfg.NewParser(grammar, opts...)
	log.Debugf("parser mode %s, start %s, workers %d", parser.Mode(), parser.StartSymbol(), config.Workers)
	return parser, nil
}
