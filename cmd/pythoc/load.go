package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pythoc-lang/pythoc/internal/loader"
	"github.com/pythoc-lang/pythoc/internal/registry"
)

// newLoadCmd opens a built shared library through the real dynamic
// loader (internal/loader), walking its `.deps` closure and resolving a
// requested symbol, the CLI-level smoke test for the platform loader
// backends in platform_unix.go/platform_windows.go. It runs against an
// empty registry.Session rather than one populated by an actual
// compilation run (there is no parser in this repo to produce one, see
// main.go's package doc), so a symbol must be named explicitly with
// --symbol rather than resolved from a FunctionInfo's ParamTypes the way
// Loader.loadOne's reflect-built wrappers do internally; what this
// exercises is the closure walk and the raw dlopen-equivalent handle,
// not the reflect call-wrapper path (see internal/loader/callwrapper.go
// for that).
func newLoadCmd() *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "load <path.so>",
		Short: "Load a shared library and its dependency closure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sess := registry.NewSession()
			l := loader.New()
			h, err := l.Load(path, sess)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s loaded\n", bold(h.Path))
			if symbol == "" {
				return nil
			}
			addr, err := h.Native.Symbol(symbol)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", symbol, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %#x\n", symbol, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "mangled symbol name to resolve after loading")
	return cmd
}
