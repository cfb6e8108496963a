package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/ling0322/pcfg"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("cykparse")

// app is the state shared by the subcommands once the root command has
// loaded the grammar
type app struct {
	flags      Config
	config     Config
	configPath string
	verbosity  int
	logPath    string
	noColor    bool

	grammar *pcfg.CNFGrammar
	parser  *pcfg.Parser
	out     io.Writer
}

// setup configures logging and loads config, grammar and parser
func (a *app) setup(cmd *cobra.Command) error {
	if a.logPath != "" {
		commonlog.Configure(a.verbosity, &a.logPath)
	} else {
		commonlog.Configure(a.verbosity, nil)
	}
	if a.noColor {
		color.NoColor = true
	}

	base := DefaultConfig()
	if a.configPath != "" {
		var err error
		if base, err = LoadConfig(a.configPath); err != nil {
			return err
		}
	}
	a.config = a.flags.merge(base, cmd.Flags())
	if err := a.config.Validate(); err != nil {
		return err
	}

	grammar, err := loadGrammar(a.config)
	if err != nil {
		return err
	}
	parser, err := newParser(grammar, a.config)
	if err != nil {
		return err
	}
	a.grammar = grammar
	a.parser = parser
	a.out = cmd.OutOrStdout()
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{flags: DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:          "cykparse",
		Short:        "Parse sentences with a CNF grammar using the CYK algorithm",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	a.flags.bindFlags(flags)
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.CountVarP(&a.verbosity, "verbose", "v", "log verbosity, repeat for more")
	flags.StringVar(&a.logPath, "log", "", "log to this file instead of stderr")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newChartCmd(a))
	rootCmd.AddCommand(newShellCmd(a))
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
