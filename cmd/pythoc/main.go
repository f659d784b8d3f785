// Command pythoc is the CLI entry point for the compiler's build graph,
// loader, and type-lattice tooling. Restructured from the teacher's flat
// cmd/ailang/main.go (stdlib `flag` + a switch over Arg(0)) onto
// spf13/cobra + spf13/pflag because pythoc's subcommand surface (build
// cache inspection, dependency graph queries, dynamic-loader smoke
// tests, the type-expression REPL) is wider than the teacher's
// run/repl/test/watch/check set — see DESIGN.md for why this is the one
// command tree in the repo promoting cobra/pflag from the teacher's
// indirect-only use to direct.
//
// The surface-language parser is out of scope (spec.md §1: delegated to
// the host language's AST), so this CLI has no `pythoc run file.py`
// command — there is no parser behind it to produce the AST a
// compilation group needs. What it does expose are the collaborators
// spec.md places in scope: the build graph's cache/link bookkeeping, the
// dynamic loader's dependency-closure and symbol resolution, and (via
// `pythoc types`) the type lattice and annotation resolver directly,
// since annotation syntax is a small enough subgrammar for this CLI to
// tokenize on its own without reimplementing the full surface language.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pythoc-lang/pythoc/internal/config"
)

// Version/Commit/BuildTime are set by ldflags during release builds,
// matching the teacher's cmd/ailang/main.go convention.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "pythoc",
		Short: "Ahead-of-time compiler build graph, loader, and type tooling",
		Long: bold("pythoc") + " drives the incremental build graph, the dynamic\n" +
			"loader, and the type-lattice/annotation resolver described in\n" +
			"the compiler's specification. The surface-language parser and\n" +
			"LLVM code emission are external collaborators this binary does\n" +
			"not itself provide.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "pythoc.yaml", "project config file")

	root.AddCommand(
		newVersionCmd(),
		newCleanCmd(),
		newDepsCmd(),
		newLoadCmd(),
		newTypesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pythoc: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pythoc: %s: %v\n", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s %s\n", bold("pythoc"), Version)
			if Commit != "unknown" {
				fmt.Printf("commit: %s\n", Commit)
			}
			if BuildTime != "unknown" {
				fmt.Printf("built:  %s\n", BuildTime)
			}
			return nil
		},
	}
}
