package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pythoc-lang/pythoc/internal/buildgraph"
	"github.com/pythoc-lang/pythoc/internal/diag"
)

// newDepsCmd inspects a `.deps` sidecar directly, the operator-facing
// counterpart to what internal/loader.ClosureLoadOrder and
// internal/buildgraph.OutputManager already read programmatically —
// useful for diagnosing a stale-cache or a missing-symbol load failure
// without attaching a debugger to the build.
func newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <path.o|path.deps>",
		Short: "Print a compilation group's recorded dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var deps *buildgraph.GroupDeps
			var err error
			if len(path) > 5 && path[len(path)-5:] == ".deps" {
				deps, err = buildgraph.LoadDepsFile(path)
			} else {
				deps, err = buildgraph.LoadDeps(path)
			}
			if err != nil {
				return err
			}
			if deps == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no recorded dependencies (clean-build cache miss)\n", path)
				return nil
			}

			rows := [][2]string{
				{"group", deps.GroupKey.String()},
				{"abi_version", deps.ABIVersion},
				{"source_mtime", fmt.Sprintf("%v", deps.SourceMtime)},
			}
			fmt.Fprint(cmd.OutOrStdout(), diag.Table(rows))

			names := make([]string, 0, len(deps.Callables))
			for n := range deps.Callables {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", cyan(n))
				for _, d := range deps.Callables[n].Deps {
					switch {
					case d.GroupKey != nil:
						fmt.Fprintf(cmd.OutOrStdout(), "  -> %s (group %s)\n", d.Name, d.GroupKey.String())
					case d.Extern:
						fmt.Fprintf(cmd.OutOrStdout(), "  -> %s (extern, libs=%v objs=%v)\n", d.Name, d.LinkLibraries, d.LinkObjects)
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "  -> %s\n", d.Name)
					}
				}
			}
			if len(deps.EffectsUsed) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\neffects used: %v\n", deps.EffectsUsed)
			}
			if len(deps.LinkLibraries) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "link libraries: %v\n", deps.LinkLibraries)
			}
			if len(deps.LinkObjects) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "link objects: %v\n", deps.LinkObjects)
			}
			return nil
		},
	}
}
