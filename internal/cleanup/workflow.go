// Package cleanup removes all but the newest deployment of a repository.
//
// GitHub refuses to delete an active deployment, so every deployment after
// the first is marked inactive and only then deleted. A failure on one
// deployment never stops the attempts on the ones after it.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deployclean/internal/ghclient"
	"deployclean/internal/history"
)

// Outcome is the per-deployment result of a cleanup run.
type Outcome string

const (
	OutcomeCleaned          Outcome = "cleaned"
	OutcomeFailedDeactivate Outcome = "failed-deactivate"
	OutcomeFailedDelete     Outcome = "failed-delete"
	OutcomeSkipped          Outcome = "skipped"
	OutcomePlanned          Outcome = "planned"
)

const (
	reasonDeactivate = "deactivate request failed"
	reasonDelete     = "delete request failed after deactivation"
	reasonCancelled  = "cleanup cancelled"
)

// API is the subset of the GitHub client the workflow drives.
type API interface {
	List(ctx context.Context, repo ghclient.Repo) []ghclient.Deployment
	Deactivate(ctx context.Context, repo ghclient.Repo, id int64) bool
	Delete(ctx context.Context, repo ghclient.Repo, id int64) bool
}

// Recorder receives an audit record for every decision the workflow makes.
type Recorder interface {
	RecordAction(ctx context.Context, record *history.Record) (int64, error)
}

// Result is the outcome for one deployment.
type Result struct {
	ID      int64   `json:"id"`
	Ref     string  `json:"ref"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Report aggregates a cleanup run.
type Report struct {
	Repository     string               `json:"repository"`
	NothingToClean bool                 `json:"nothing_to_clean"`
	DryRun         bool                 `json:"dry_run,omitempty"`
	Kept           *ghclient.Deployment `json:"kept,omitempty"`
	Results        []Result             `json:"results"`
	Cleaned        int                  `json:"cleaned"`
	Failed         int                  `json:"failed"`
	Skipped        int                  `json:"skipped"`
}

// Summary renders the aggregate outcome as one line.
func (r *Report) Summary() string {
	if r.NothingToClean {
		return fmt.Sprintf("%s: no deployments found, nothing to clean", r.Repository)
	}
	if r.DryRun {
		return fmt.Sprintf("%s: keeping deployment %d, would clean %d", r.Repository, r.Kept.ID, len(r.Results))
	}

	summary := fmt.Sprintf("%s: kept deployment %d, cleaned %d, failed %d", r.Repository, r.Kept.ID, r.Cleaned, r.Failed)
	if r.Skipped > 0 {
		summary += fmt.Sprintf(", skipped %d", r.Skipped)
	}

	var failures []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailedDeactivate || res.Outcome == OutcomeFailedDelete {
			failures = append(failures, fmt.Sprintf("%d (%s)", res.ID, res.Reason))
		}
	}
	if len(failures) > 0 {
		summary += ": " + strings.Join(failures, ", ")
	}
	return summary
}

// HasFailures reports whether any deployment could not be cleaned.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// Workflow runs the keep-newest cleanup against one repository at a time.
type Workflow struct {
	api      API
	logger   *slog.Logger
	recorder Recorder
	observer func(Result)
	dryRun   bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRecorder records every outcome in the audit history.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) {
		w.recorder = r
	}
}

// WithObserver calls fn after each deployment is handled.
func WithObserver(fn func(Result)) Option {
	return func(w *Workflow) {
		w.observer = fn
	}
}

// WithDryRun reports what would be cleaned without calling the API.
func WithDryRun(dryRun bool) Option {
	return func(w *Workflow) {
		w.dryRun = dryRun
	}
}

// NewWorkflow creates a cleanup workflow over api.
func NewWorkflow(api API, logger *slog.Logger, opts ...Option) *Workflow {
	w := &Workflow{api: api, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run lists the repository's deployments and cleans them.
func (w *Workflow) Run(ctx context.Context, repo ghclient.Repo) *Report {
	return w.Clean(ctx, repo, w.api.List(ctx, repo))
}

// Clean keeps deployments[0] and deactivates then deletes every other
// deployment in order. The listing must be newest first; it is not sorted.
func (w *Workflow) Clean(ctx context.Context, repo ghclient.Repo, deployments []ghclient.Deployment) *Report {
	report := &Report{
		Repository: repo.String(),
		DryRun:     w.dryRun,
		Results:    []Result{},
	}

	if len(deployments) == 0 {
		w.logger.Info("No deployments found, nothing to clean", "repository", report.Repository)
		report.NothingToClean = true
		return report
	}

	kept := deployments[0]
	report.Kept = &kept
	w.logger.Info("Keeping the latest deployment", "repository", report.Repository, "deployment_id", kept.ID, "ref", kept.Ref)
	if !w.dryRun {
		w.record(ctx, repo, kept.ID, history.ActionKeep, "kept", "")
	}

	for _, d := range deployments[1:] {
		res := w.cleanOne(ctx, repo, d)

		switch res.Outcome {
		case OutcomeCleaned:
			report.Cleaned++
		case OutcomeFailedDeactivate, OutcomeFailedDelete:
			report.Failed++
		case OutcomeSkipped:
			report.Skipped++
		}
		report.Results = append(report.Results, res)

		if w.observer != nil {
			w.observer(res)
		}
	}

	w.logger.Info("Cleanup finished",
		"repository", report.Repository,
		"cleaned", report.Cleaned,
		"failed", report.Failed,
		"skipped", report.Skipped)

	return report
}

func (w *Workflow) cleanOne(ctx context.Context, repo ghclient.Repo, d ghclient.Deployment) Result {
	res := Result{ID: d.ID, Ref: d.Ref}

	if w.dryRun {
		res.Outcome = OutcomePlanned
		return res
	}

	if ctx.Err() != nil {
		res.Outcome = OutcomeSkipped
		res.Reason = reasonCancelled
		return res
	}

	switch {
	case !w.api.Deactivate(ctx, repo, d.ID):
		res.Outcome = OutcomeFailedDeactivate
		res.Reason = reasonDeactivate
	case !w.api.Delete(ctx, repo, d.ID):
		res.Outcome = OutcomeFailedDelete
		res.Reason = reasonDelete
	default:
		res.Outcome = OutcomeCleaned
	}

	if res.Outcome == OutcomeCleaned {
		w.logger.Info("Cleaned deployment", "repository", repo.String(), "deployment_id", d.ID)
	} else {
		w.logger.Warn("Failed to clean deployment", "repository", repo.String(), "deployment_id", d.ID, "outcome", res.Outcome)
	}

	w.record(ctx, repo, d.ID, history.ActionClean, string(res.Outcome), res.Reason)
	return res
}

// record writes an audit entry. Recorder failures are logged only.
func (w *Workflow) record(ctx context.Context, repo ghclient.Repo, id int64, action, outcome, reason string) {
	if w.recorder == nil {
		return
	}

	rec := &history.Record{
		Owner:        repo.Owner,
		Repo:         repo.Name,
		DeploymentID: id,
		Action:       action,
		Outcome:      outcome,
	}
	if reason != "" {
		rec.Message = &reason
	}

	// Audit even when the run itself was cancelled.
	if _, err := w.recorder.RecordAction(context.WithoutCancel(ctx), rec); err != nil {
		w.logger.Error("Failed to record cleanup action", "error", err, "deployment_id", id)
	}
}
