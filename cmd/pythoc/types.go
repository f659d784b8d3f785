package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/pythoc-lang/pythoc/internal/diag"
	"github.com/pythoc-lang/pythoc/internal/errors"
	"github.com/pythoc-lang/pythoc/internal/irbuilder"
	"github.com/pythoc-lang/pythoc/internal/registry"
	"github.com/pythoc-lang/pythoc/internal/visitor"
)

// newTypesCmd exercises the type lattice and annotation resolver
// (internal/types, internal/visitor.Context.ResolveType) directly,
// standing in for the `pythoc build --dump-ast`-style inspection
// commands the teacher's cmd/ailang exposes for its own AST/eval
// pipeline, scaled down to the one stage of the pipeline pythoc can
// drive without a surface-language parser: resolving a type annotation
// to its TypeObject and reporting its layout.
func newTypesCmd() *cobra.Command {
	var repl bool
	cmd := &cobra.Command{
		Use:   "types [annotation]",
		Short: "Resolve a type annotation and print its layout",
		Long: "Resolve a type annotation (e.g. `ptr[i32]`, `array[i32, 4]`,\n" +
			"`linear[MyStruct]`) through the same resolver AnnAssign lowering\n" +
			"uses, printing the resulting TypeObject's size, alignment, and\n" +
			"IR spelling. With --repl, reads annotations one per line from\n" +
			"stdin until EOF/Ctrl-D instead of taking one from argv.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := newTypeCalcContext()
			if repl {
				return runTypesRepl(ctx, cmd.OutOrStdout())
			}
			if len(args) == 0 {
				return fmt.Errorf("provide an annotation or pass --repl")
			}
			return evalAndPrint(cmd.OutOrStdout(), ctx, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&repl, "repl", false, "read annotations interactively")
	return cmd
}

// newTypeCalcContext builds a bare visitor.Context good enough to drive
// ResolveType: a fresh registry.Session and a TextBackend standing in
// for the real LLVM-bound builder (SPEC_FULL.md §8), matching how
// internal/visitor's own tests construct a Context for resolver-only
// exercises.
func newTypeCalcContext() *visitor.Context {
	sess := registry.NewSession()
	b := irbuilder.NewTextBackend(&irbuilder.Context{ModuleName: "pythoc-types", OptLevel: 0})
	return visitor.NewContext(sess, b, "<types>", "<stdin>")
}

func evalAndPrint(w io.Writer, ctx *visitor.Context, src string) error {
	expr, err := parseTypeExpr(src)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", src, err)
		return nil
	}
	t, err := ctx.ResolveType(expr)
	if err != nil {
		if r, ok := errors.AsReport(err); ok {
			diag.PrintReport(w, r)
			return nil
		}
		return err
	}
	fmt.Fprintln(w, diag.Table([][2]string{
		{"annotation", src},
		{"resolved", t.String()},
		{"size", fmt.Sprintf("%d bytes", t.ByteSize())},
		{"align", fmt.Sprintf("%d bytes", t.Alignment())},
		{"ir", t.IRType(ctx.Builder.Context()).String()},
	}))
	return nil
}

func runTypesRepl(ctx *visitor.Context, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()

	fmt.Fprintln(out, dim("Type an annotation (ptr[i32], array[i32, 4], ...); Ctrl-D to exit"))
	for {
		input, err := line.Prompt("pythoc-types> ")
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)
		if err := evalAndPrint(out, ctx, input); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
