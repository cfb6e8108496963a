package main

import (
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Parse sentences typed interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions := a.terminalSuggestions()
			p := prompt.New(
				func(line string) {
					line = strings.TrimSpace(line)
					if line == "" || isExitCommand(line) {
						return
					}
					if err := a.parseAndPrint(cmd, line); err != nil {
						fmt.Fprintln(a.out, err)
					}
				},
				func(d prompt.Document) []prompt.Suggest {
					return a.complete(suggestions, d.GetWordBeforeCursor())
				},
				prompt.OptionTitle("cykparse: interactive CYK parsing"),
				prompt.OptionPrefix(">>> "),
				prompt.OptionPrefixTextColor(prompt.Cyan),
				prompt.OptionInputTextColor(prompt.Yellow),
				prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
					return breakline && isExitCommand(strings.TrimSpace(in))
				}),
			)
			p.Run()
			return nil
		},
	}
}

// terminalSuggestions offers every word of the grammar for completion
func (a *app) terminalSuggestions() []prompt.Suggest {
	terminals := a.grammar.Terminals()
	suggestions := make([]prompt.Suggest, len(terminals))
	for i, t := range terminals {
		suggestions[i] = prompt.Suggest{Text: t}
	}
	return suggestions
}

// complete returns the suggestions starting with word, ignoring case when
// input is lower-cased anyway
func (a *app) complete(suggestions []prompt.Suggest, word string) []prompt.Suggest {
	if word == "" {
		return nil
	}
	return prompt.FilterHasPrefix(suggestions, word, a.config.Lowercase)
}

func isExitCommand(line string) bool {
	return line == "exit" || line == "quit"
}
