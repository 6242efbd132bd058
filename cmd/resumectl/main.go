package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"resume-editor/internal/bootstrap"
	"resume-editor/internal/editor"
	"resume-editor/internal/shared/config"
	"resume-editor/internal/shared/telemetry"
)

// cli carries the flag values and collaborators shared by every subcommand.
type cli struct {
	out    io.Writer
	errOut io.Writer

	format  string
	output  string
	kind    string
	timeout time.Duration

	newCompleter func(config.Config) (editor.Completer, error)
}

func newRootCmd(c *cli) *cobra.Command {
	if c.newCompleter == nil {
		c.newCompleter = bootstrap.BuildCompleter
	}
	root := &cobra.Command{
		Use:   "resumectl",
		Short: "Offline resume import, rewrite and export",
		Long: `resumectl runs the resume editor pipeline on local files.

Examples:
  resumectl import resume.pdf
  resumectl export resume.docx --format md
  resumectl rewrite resume.md --kind list-item -o improved.md`,
		SilenceUsage: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "", "write to this file instead of stdout")

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Parse a file into editor blocks and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runImport,
	}

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Convert a file to markdown or DOCX",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runExport,
	}
	exportCmd.Flags().StringVarP(&c.format, "format", "f", "md", "output format (md|docx)")

	rewriteCmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Rewrite blocks of one kind through the configured completion provider",
		Long: `Every non-empty block of the chosen kind is underlined, sent for completion
and accepted once settled. Blocks whose completion fails keep their text.`,
		Args: cobra.ExactArgs(1),
		RunE: c.runRewrite,
	}
	rewriteCmd.Flags().StringVarP(&c.format, "format", "f", "md", "output format (md|docx)")
	rewriteCmd.Flags().StringVar(&c.kind, "kind", "list-item", "block kind to rewrite (title|paragraph|list-item)")
	rewriteCmd.Flags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "overall time limit")

	root.AddCommand(importCmd, exportCmd, rewriteCmd)
	return root
}

func main() {
	telemetry.Configure("production")
	defer telemetry.Sync()

	root := newRootCmd(&cli{out: os.Stdout, errOut: os.Stderr})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
