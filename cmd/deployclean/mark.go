package main

import (
	"context"
	"fmt"

	"deployclean/internal/config"
	"deployclean/internal/history"
	"deployclean/internal/security"

	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark ID",
	Short: "Mark a deployment as inactive",
	Long: `Create an inactive status for one deployment.

A deployment has to be inactive before GitHub allows it to be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func runMark(cmd *cobra.Command, args []string) error {
	id, err := security.ParseDeploymentID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	ok := a.client.Deactivate(cmd.Context(), a.target.Repository(), id)
	a.record(cmd.Context(), id, history.ActionDeactivate, ok)

	out := cmd.OutOrStdout()
	if ok {
		fmt.Fprintf(out, "%s Deployment %d marked as inactive\n", colorize(colorGreen, "[OK]"), id)
	} else {
		fmt.Fprintf(out, "%s Failed to mark deployment %d as inactive (run with --verbose for details)\n", colorize(colorRed, "[FAIL]"), id)
	}
	return nil
}

// record appends a single-deployment action to the audit history when one
// is configured.
func (a *app) record(ctx context.Context, id int64, action string, ok bool) {
	hist, err := openHistory(a.cfg)
	if err != nil {
		a.logger.Error("Failed to open history", "error", err)
		return
	}
	if hist == nil {
		return
	}
	defer hist.Close()

	if _, err := hist.RecordAction(context.WithoutCancel(ctx), singleRecord(a.target, id, action, ok)); err != nil {
		a.logger.Error("Failed to record action in history", "error", err, "deployment_id", id)
	}
}

func singleRecord(target config.Target, id int64, action string, ok bool) *history.Record {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	return &history.Record{
		Owner:        target.Owner,
		Repo:         target.Repo,
		DeploymentID: id,
		Action:       action,
		Outcome:      outcome,
	}
}
