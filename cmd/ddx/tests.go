package main

import (
	"fmt"
	"os"

	"github.com/diagnomed/ddx/internal/catalog"
	"github.com/diagnomed/ddx/internal/matcher"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var testsCmd = &cobra.Command{
	Use:   "tests <disease-id>",
	Short: "List diagnostic tests for a disease",
	Long: `List the catalog tests available for a disease, with cost and
accuracy characteristics.

Examples:
  ddx tests D001
  CATALOG_PATH=./custom-tests.yaml ddx tests D002`,
	Args: cobra.ExactArgs(1),
	RunE: runTests,
}

func runTests(cmd *cobra.Command, args []string) error {
	diseaseID := args[0]

	mapper, err := matcher.New()
	if err != nil {
		return err
	}

	cat := catalog.Load(os.Getenv("CATALOG_PATH"))
	tests := cat.TestsFor(diseaseID)
	if len(tests) == 0 {
		return fmt.Errorf("no tests in catalog for %s", diseaseID)
	}

	name := mapper.DiseaseName(diseaseID)
	if name == "" {
		name = diseaseID
	}

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	_, _ = bold.Printf("Tests for %s\n\n", name)
	for _, t := range tests {
		fmt.Printf("  %-6s %-28s $%.0f\n", t.TestID, t.Name, t.CostUSD)
		_, _ = dim.Printf("         sensitivity %.0f%%, specificity %.0f%%\n",
			t.Sensitivity*100, t.Specificity*100)
	}
	return nil
}
