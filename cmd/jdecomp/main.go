/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Command jdecomp is the thin CLI front end over package decompiler: it
// owns argument parsing and where output goes, nothing else.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jdecomp/decompiler"
	"jdecomp/trace"
)

var (
	flagRecoverNames  bool
	flagFoldCtor      bool
	flagForLoops      bool
	flagLineComments  bool
	flagLenientUTF8   bool
	flagIndent        string
	flagVerbose       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jdecomp <file.class>",
		Short: "Decompile a Java .class file to Java source",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecompile,
	}

	cmd.Flags().BoolVar(&flagRecoverNames, "recover-names", true, "recover parameter names from LocalVariableTable when present")
	cmd.Flags().BoolVar(&flagFoldCtor, "fold-constructors", true, "fold new+invokespecial <init> into a single constructor call")
	cmd.Flags().BoolVar(&flagForLoops, "prefer-for-loops", true, "rewrite eligible while loops into for loops")
	cmd.Flags().BoolVar(&flagLineComments, "line-comments", false, "annotate emitted statements with their originating bytecode pc")
	cmd.Flags().BoolVar(&flagLenientUTF8, "lenient-utf8", false, "tolerate invalid modified-UTF-8 in the constant pool")
	cmd.Flags().StringVar(&flagIndent, "indent", "    ", "indentation unit for emitted source")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable fine-grained trace logging")

	return cmd
}

func runDecompile(cmd *cobra.Command, args []string) error {
	trace.Init()
	if flagVerbose {
		trace.SetLevel(trace.FINE)
	}

	opts := decompiler.Options{
		RecoverVariableNames: flagRecoverNames,
		FoldConstructorNew:   flagFoldCtor,
		PreferForLoops:       flagForLoops,
		EmitLineComments:     flagLineComments,
		LenientUTF8:          flagLenientUTF8,
		IndentUnit:           flagIndent,
	}

	doc, err := decompiler.DecompileFile(args[0], opts)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), doc.SourceText)
	for _, d := range doc.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", d.Severity, d.Message)
	}
	return nil
}
