package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"deployclean/internal/cleanup"
	"deployclean/internal/ghclient"
	"deployclean/internal/history"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderDeployments prints one row per deployment. The state column is last
// so that color codes do not disturb the alignment.
func renderDeployments(w io.Writer, deployments []ghclient.Deployment) error {
	if len(deployments) == 0 {
		_, err := fmt.Fprintln(w, "No deployments found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREF\tENVIRONMENT\tCREATED AT\tSTATE")
	for _, d := range deployments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			d.ID, d.Ref, d.Environment, d.CreatedAt, colorize(stateColor(d.State), string(d.State)))
	}
	return tw.Flush()
}

func renderResult(w io.Writer, res cleanup.Result) {
	switch res.Outcome {
	case cleanup.OutcomeCleaned:
		fmt.Fprintf(w, "  %s deployment %d (%s)\n", colorize(colorGreen, "[CLEANED]"), res.ID, res.Ref)
	case cleanup.OutcomePlanned:
		fmt.Fprintf(w, "  %s deployment %d (%s)\n", colorize(colorYellow, "[WOULD CLEAN]"), res.ID, res.Ref)
	case cleanup.OutcomeSkipped:
		fmt.Fprintf(w, "  %s deployment %d (%s): %s\n", colorize(colorGray, "[SKIPPED]"), res.ID, res.Ref, res.Reason)
	default:
		fmt.Fprintf(w, "  %s deployment %d (%s): %s\n", colorize(colorRed, "[FAIL]"), res.ID, res.Ref, res.Reason)
	}
}

func renderReport(w io.Writer, report *cleanup.Report) {
	fmt.Fprintln(w, report.Summary())
}

func renderHistory(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No history recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREPOSITORY\tDEPLOYMENT\tACTION\tOUTCOME\tMESSAGE")
	for _, r := range records {
		msg := ""
		if r.Message != nil {
			msg = *r.Message
		}
		fmt.Fprintf(tw, "%s\t%s/%s\t%d\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.Owner, r.Repo, r.DeploymentID, r.Action, r.Outcome, msg)
	}
	return tw.Flush()
}
