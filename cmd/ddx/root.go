// Package main provides the ddx command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ddx",
	Short: "Interactive differential diagnosis",
	Long: `ddx runs an interactive diagnostic session from the terminal.

It builds a differential from reported symptoms, folds in regional,
genomic, family-history, and imaging evidence, then walks through
test recommendations until the diagnosis is confident enough.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(testsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	Execute()
}
