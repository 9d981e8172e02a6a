package main

import (
	"fmt"

	"deployclean/internal/cleanup"

	"github.com/spf13/cobra"
)

var (
	cleanDryRun bool
	cleanJSON   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every deployment except the newest",
	Long: `Keep the newest deployment and remove all others.

Each older deployment is first marked inactive and then deleted. A failure on
one deployment does not stop the others; the command exits with an error if
any deployment could not be cleaned. Interrupting the command skips the
deployments not yet processed.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be cleaned without changing anything")
	cleanCmd.Flags().BoolVar(&cleanJSON, "json", false, "Print the cleanup report as JSON")
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := []cleanup.Option{cleanup.WithDryRun(cleanDryRun)}

	if !cleanJSON {
		opts = append(opts, cleanup.WithObserver(func(res cleanup.Result) {
			renderResult(out, res)
		}))
	}

	hist, err := openHistory(a.cfg)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
		opts = append(opts, cleanup.WithRecorder(hist))
	}

	workflow := cleanup.NewWorkflow(a.client, a.logger, opts...)
	repo := a.target.Repository()

	deployments := a.client.List(cmd.Context(), repo)
	if !cleanJSON && len(deployments) > 0 {
		kept := deployments[0]
		fmt.Fprintf(out, "Keeping latest deployment %d (%s, %s)\n", kept.ID, kept.Ref, kept.CreatedAt)
	}

	report := workflow.Clean(cmd.Context(), repo, deployments)

	if cleanJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		renderReport(out, report)
	}

	if report.HasFailures() {
		return fmt.Errorf("%d of %d deployments could not be cleaned", report.Failed, len(report.Results))
	}
	return nil
}
