package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [sentence...]",
		Short: "Parse the sentence given as arguments, or every line of stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return a.parseAndPrint(cmd, strings.Join(args, " "))
			}
			return a.parseLines(cmd, cmd.InOrStdin())
		},
	}
}

// parseLines parses every non-blank line of r
func (a *app) parseLines(cmd *cobra.Command, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := a.parseAndPrint(cmd, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// parseAndPrint parses one sentence and writes the result in the configured
// output format
func (a *app) parseAndPrint(cmd *cobra.Command, sentence string) error {
	entries, err := a.parser.ParseContext(cmd.Context(), sentence, a.parser.StartSymbol())
	if err != nil {
		return fmt.Errorf("parse %q: %w", sentence, err)
	}
	if len(entries) == 0 {
		log.Noticef("no parse for %q", sentence)
	}

	result := newSentenceResult(a.grammar, sentence, entries)
	o, err := FormatResult(result, a.config.Output, !a.noColor)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, o)
	return nil
}
