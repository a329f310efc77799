// Command wasm2js is a thin CLI wrapper around wasmpolyfill.Translate
// (SPEC_FULL.md §6 "CLI adapter"): it reads a .wasm file, translates it,
// and writes the emitted host-language source to stdout or a file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	wasmpolyfill "github.com/rfk/wasm-polyfill-sub001"
	"github.com/rfk/wasm-polyfill-sub001/internal/tracelog"
)

var (
	outPath string
	verbose bool
)

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <module.wasm>",
		Short: "Translate a WASM MVP binary module into host-language source",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranslate,
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write emitted source to this file instead of stdout")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level decode/translate tracing")
	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if err := tracelog.SetVerbose(verbose); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	js, err := wasmpolyfill.Translate(data, wasmpolyfill.NewTranslateConfig())
	if err != nil {
		return err
	}

	if outPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), js)
		return err
	}
	return os.WriteFile(outPath, []byte(js), 0o644)
}

func main() {
	root := &cobra.Command{Use: "wasm2js"}
	root.AddCommand(newTranslateCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
