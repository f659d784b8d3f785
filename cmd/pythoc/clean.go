package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCleanCmd removes the build directory's cached `.o`/`.so`/`.deps`
// output (spec.md §6's build/ tree), the same blunt "delete the cache
// and let the next build repopulate it" escape hatch a stale-cache bug
// in the build graph calls for — buildgraph's own incrementality only
// ever adds or overwrites entries; nothing short of removing the
// directory drops an entry the source no longer produces.
func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the build output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if _, err := os.Stat(cfg.BuildDir); os.IsNotExist(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to clean\n", cfg.BuildDir)
				return nil
			}
			if err := os.RemoveAll(cfg.BuildDir); err != nil {
				return fmt.Errorf("clean %s: %w", cfg.BuildDir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", bold(cfg.BuildDir))
			return nil
		},
	}
}
