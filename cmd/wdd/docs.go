package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsCmd = &cobra.Command{
	Use:    "gen-docs",
	Short:  "Generate the wdd man page or markdown reference",
	Hidden: true,
	RunE:   runGenDocs,
}

func init() {
	docsCmd.Flags().String("dir", "docs", "output directory")
	docsCmd.Flags().String("format", "man", "output format (man or markdown)")
}

func runGenDocs(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString("dir")       //nolint:errcheck // flag name is hardcoded
	format, _ := cmd.Flags().GetString("format") //nolint:errcheck // flag name is hardcoded

	if format != "man" && format != "markdown" {
		return fmt.Errorf("unknown format %q (use man or markdown)", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	if format == "markdown" {
		return doc.GenMarkdownTree(cmd.Root(), dir)
	}
	header := &doc.GenManHeader{
		Title:   "WDD",
		Section: "1",
		Source:  "wdd " + version,
		Manual:  "User Commands",
	}
	return doc.GenManTree(cmd.Root(), header, dir)
}
