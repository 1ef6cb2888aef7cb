package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/diagnomed/ddx/internal/catalog"
	"github.com/diagnomed/ddx/internal/database"
	"github.com/diagnomed/ddx/internal/evidence"
	"github.com/diagnomed/ddx/internal/imaging"
	"github.com/diagnomed/ddx/internal/matcher"
	"github.com/diagnomed/ddx/internal/priors"
	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/internal/treatment"
	"github.com/diagnomed/ddx/pkg/models"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	diagnoseRegion            string
	diagnoseMonth             int
	diagnoseVariants          []string
	diagnoseFamilyHistory     []string
	diagnoseImage             string
	diagnoseContraindications []string
	diagnoseJSON              bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <symptom>...",
	Short: "Run an interactive diagnostic session",
	Long: `Run an interactive diagnostic session from reported symptoms.

The session proposes diagnostic tests one round at a time. Enter results
as "<test-id> <result>" (for example "T001 positive"), or "done" to
finish and print the final report.

Examples:
  ddx diagnose fever cough fatigue
  ddx diagnose fever chills --region "South Asia" --month 7
  ddx diagnose cough "chest pain" --image ./chest.png --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVarP(&diagnoseRegion, "region", "r", "", "Patient region for epidemiological priors")
	diagnoseCmd.Flags().IntVarP(&diagnoseMonth, "month", "m", 0, "Month of presentation (1-12, default current)")
	diagnoseCmd.Flags().StringSliceVar(&diagnoseVariants, "variants", nil, "Genetic variants (e.g. rs334)")
	diagnoseCmd.Flags().StringSliceVar(&diagnoseFamilyHistory, "family-history", nil, "Family history disease names")
	diagnoseCmd.Flags().StringVar(&diagnoseImage, "image", "", "Chest X-ray image to classify (requires CNN_SERVICE_URL)")
	diagnoseCmd.Flags().StringSliceVar(&diagnoseContraindications, "contraindications", nil, "Medication contraindications")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Output final result as JSON")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	ctx := context.Background()

	mapper, err := matcher.New()
	if err != nil {
		return err
	}
	epidemiology, err := priors.NewEpidemiology()
	if err != nil {
		return err
	}
	genomic, err := priors.NewGenomic()
	if err != nil {
		return err
	}
	recommender, err := treatment.New()
	if err != nil {
		return err
	}

	var cases session.CaseStore
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := withSpinner("Connecting to case database...", func() (*database.DB, error) {
			if err := database.Migrate(dbURL); err != nil {
				return nil, err
			}
			return database.New(ctx, dbURL)
		})
		if err != nil {
			return fmt.Errorf("case database unavailable: %w", err)
		}
		defer db.Close()
		cases = db
	}

	var predictions map[string]float64
	if diagnoseImage != "" {
		client, err := imaging.NewClient()
		if err != nil {
			return err
		}
		pred, err := withSpinner("Classifying image...", func() (*imaging.Prediction, error) {
			return client.Predict(ctx, diagnoseImage)
		})
		if err != nil {
			return fmt.Errorf("image classification failed: %w", err)
		}
		predictions = pred.Predictions
	}

	engine := session.NewEngine(session.Config{
		Repository: session.NewMemoryRepository(),
		Matcher:    mapper,
		Aggregator: evidence.New(epidemiology, genomic, mapper),
		Catalog:    catalog.Load(os.Getenv("CATALOG_PATH")),
		Treatment:  recommender,
		Cases:      cases,
	})

	sess := engine.Start(session.StartParams{
		Symptoms:        args,
		Region:          diagnoseRegion,
		Month:           diagnoseMonth,
		FamilyHistory:   diagnoseFamilyHistory,
		GeneticVariants: diagnoseVariants,
		CNNPredictions:  predictions,
	})

	printDifferential(sess)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		printRecommendedTests(sess)
		if len(sess.RecommendedTests) == 0 {
			break
		}

		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "done") {
			break
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, `Enter "<test-id> <result>" or "done".`)
			continue
		}

		updated, err := engine.SubmitTestResult(sess.SessionID, fields[0], fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		sess = updated

		printDifferential(sess)
		if sess.Status == models.StatusHighConfidence {
			green := color.New(color.FgGreen, color.Bold)
			_, _ = green.Fprintln(os.Stderr, "\nHigh confidence reached.")
			break
		}
	}

	result, err := engine.Result(ctx, sess.SessionID, diagnoseContraindications)
	if err != nil {
		return err
	}

	if diagnoseJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printFinalResult(result)
	return nil
}

// withSpinner runs fn with a terminal spinner on stderr.
func withSpinner[T any](message string, fn func() (T, error)) (T, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()
	return fn()
}

func printDifferential(sess *models.Session) {
	bold := color.New(color.Bold)
	fmt.Fprintln(os.Stderr)
	_, _ = bold.Fprintln(os.Stderr, "Differential")
	for _, c := range sess.Candidates {
		printProbabilityBar(c.Name, c.BaseProbability)
	}
}

func printRecommendedTests(sess *models.Session) {
	if len(sess.RecommendedTests) == 0 {
		fmt.Fprintln(os.Stderr, "\nNo further tests to recommend.")
		return
	}

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	fmt.Fprintln(os.Stderr)
	_, _ = bold.Fprintln(os.Stderr, "Recommended tests")
	for _, t := range sess.RecommendedTests {
		fmt.Fprintf(os.Stderr, "  %-6s %-28s $%.0f", t.TestID, t.Name, t.CostUSD)
		_, _ = dim.Fprintf(os.Stderr, "  for %s\n", t.ForDisease)
	}
}

func printProbabilityBar(name string, probability float64) {
	const barWidth = 24
	filled := int(probability * barWidth)
	if filled > barWidth {
		filled = barWidth
	}

	var barColor *color.Color
	switch {
	case probability >= 0.70:
		barColor = color.New(color.FgGreen)
	case probability >= 0.40:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(os.Stderr, "  %-24s %5.1f%% ", name, probability*100)
	_, _ = barColor.Fprintln(os.Stderr, bar)
}

func printFinalResult(r *session.FinalResult) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Println()
	_, _ = dim.Println("  " + strings.Repeat("━", 50))

	diagnosis := r.Report.FinalDiagnosis
	_, _ = bold.Printf("DIAGNOSIS: %s", diagnosis.Disease)
	if diagnosis.Category != "" {
		_, _ = dim.Printf(" (%s)", diagnosis.Category)
	}
	fmt.Println()
	printProbabilityBar("Probability", diagnosis.Probability)
	fmt.Printf("Confidence: %s (%.0f%%)\n", r.Trustworthiness.ConfidenceLevel,
		r.Trustworthiness.ConfidenceScore*100)

	if len(r.Report.Differential) > 1 {
		fmt.Println()
		_, _ = bold.Println("DIFFERENTIAL")
		for _, d := range r.Report.Differential {
			fmt.Printf("  %-24s %5.1f%%\n", d.Name, d.Probability*100)
		}
	}

	if len(r.Trustworthiness.ReasoningChain) > 0 {
		fmt.Println()
		_, _ = bold.Println("REASONING")
		for _, step := range r.Trustworthiness.ReasoningChain {
			fmt.Printf("  %s\n", step)
		}
	}

	if len(r.Trustworthiness.UncertaintyFactors) > 0 {
		fmt.Println()
		yellow := color.New(color.FgYellow)
		_, _ = bold.Println("UNCERTAINTY")
		for _, f := range r.Trustworthiness.UncertaintyFactors {
			_, _ = yellow.Printf("  %s\n", f)
		}
	}

	if r.Treatment != nil {
		fmt.Println()
		_, _ = bold.Println("TREATMENT")
		for _, m := range r.Treatment.Medications {
			fmt.Printf("  %s, %s, %s\n", m.Name, m.Dosage, m.Duration)
		}
		for _, c := range r.Treatment.SupportiveCare {
			_, _ = dim.Printf("  %s\n", c)
		}
		for _, w := range r.Treatment.Warnings {
			yellow := color.New(color.FgYellow)
			_, _ = yellow.Printf("  %s\n", w)
		}
	}

	fmt.Println()
	_, _ = dim.Printf("Tests ordered: %d, total cost: $%.0f\n",
		r.Report.DiagnosticJourney.TestsOrdered, r.TotalCost)
}
