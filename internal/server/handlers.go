package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"deployclean/internal/cleanup"
	"deployclean/internal/config"
	"deployclean/internal/ghclient"
	"deployclean/internal/history"
	"deployclean/internal/security"
	"deployclean/internal/tasks"

	"github.com/go-chi/chi/v5"
)

const (
	// TokenHeader replaces the configured GitHub token for one request.
	TokenHeader = "X-GitHub-Token"

	// MaxHistoryLimit caps the limit query parameter of /api/history.
	MaxHistoryLimit = 500
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"history": s.History != nil,
	}
	if s.Config.Owner != "" && s.Config.Repo != "" {
		response["repository"] = s.Config.Owner + "/" + s.Config.Repo
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleListDeployments returns the target's deployments, newest first, with
// their latest state.
func (s *Server) HandleListDeployments(w http.ResponseWriter, r *http.Request) {
	target, client, ok := s.targetClient(w, r)
	if !ok {
		return
	}

	deployments := client.ListWithStates(r.Context(), target.Repository())
	s.respondJSON(w, http.StatusOK, deployments)
}

// HandleMarkInactive creates an inactive status for one deployment.
func (s *Server) HandleMarkInactive(w http.ResponseWriter, r *http.Request) {
	s.handleSingle(w, r, history.ActionDeactivate, cleanup.API.Deactivate)
}

// HandleDelete deletes one deployment. GitHub rejects the deletion of a
// deployment that is still active.
func (s *Server) HandleDelete(w http.ResponseWriter, r *http.Request) {
	s.handleSingle(w, r, history.ActionDelete, cleanup.API.Delete)
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request, action string,
	op func(cleanup.API, context.Context, ghclient.Repo, int64) bool) {
	id, err := security.ParseDeploymentID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid deployment id: %v", err)})
		return
	}

	target, client, ok := s.targetClient(w, r)
	if !ok {
		return
	}

	success := op(client, r.Context(), target.Repository(), id)
	s.recordSingle(r.Context(), target, id, action, success)

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": success})
}

func (s *Server) recordSingle(ctx context.Context, target config.Target, id int64, action string, success bool) {
	if s.History == nil {
		return
	}

	outcome := "ok"
	if !success {
		outcome = "failed"
	}

	if _, err := s.History.RecordAction(context.WithoutCancel(ctx), &history.Record{
		Owner:        target.Owner,
		Repo:         target.Repo,
		DeploymentID: id,
		Action:       action,
		Outcome:      outcome,
	}); err != nil {
		s.Logger.Error("Failed to record action in history", "error", err, "action", action, "deployment_id", id)
	}
}

// HandleClean starts a background cleanup of the target repository and
// answers 202 with the job id.
func (s *Server) HandleClean(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid dry_run value"})
			return
		}
		dryRun = v
	}

	target, client, ok := s.targetClient(w, r)
	if !ok {
		return
	}

	key := target.String()
	if !s.LockManager.TryLock(key) {
		s.Logger.Warn("Cleanup already in progress, rejecting", "repository", key)
		s.respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Cleanup already in progress"})
		return
	}

	opts := []cleanup.Option{cleanup.WithDryRun(dryRun)}
	if s.History != nil {
		opts = append(opts, cleanup.WithRecorder(s.History))
	}
	workflow := cleanup.NewWorkflow(client, s.Logger, opts...)
	repo := target.Repository()

	future, err := s.Pool.Submit("clean "+key, func(ctx context.Context) (interface{}, error) {
		defer s.LockManager.Unlock(key)
		return workflow.Run(ctx, repo), nil
	})
	if err != nil {
		s.LockManager.Unlock(key)
		s.Logger.Warn("Failed to queue cleanup", "repository", key, "error", err)

		msg := "Cleanup queue is full"
		if errors.Is(err, tasks.ErrPoolClosed) {
			msg = "Server is shutting down"
		}
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": msg})
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":    "Cleanup accepted",
		"job_id":     future.ID,
		"repository": key,
		"dry_run":    dryRun,
	})
}

// HandleJob returns the status of a background job, including its report
// once it has finished.
func (s *Server) HandleJob(w http.ResponseWriter, r *http.Request) {
	future, ok := s.Pool.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": "Unknown job"})
		return
	}

	s.respondJSON(w, http.StatusOK, future.Snapshot())
}

// HandleHistory returns recent audit records. Records of all repositories
// are returned unless both username and repo are given.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "History is disabled"})
		return
	}

	q := r.URL.Query()
	limit := history.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit)})
			return
		}
		limit = n
	}

	owner, repo := q.Get("username"), q.Get("repo")
	if owner == "" || repo == "" {
		owner, repo = "", ""
	}

	records, err := s.History.Recent(r.Context(), owner, repo, limit)
	if err != nil {
		s.Logger.Error("Failed to get history", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch history"})
		return
	}

	s.respondJSON(w, http.StatusOK, records)
}

// targetClient resolves the request's target and builds a client for it.
// On failure the error response has already been written.
func (s *Server) targetClient(w http.ResponseWriter, r *http.Request) (config.Target, GitHub, bool) {
	q := r.URL.Query()
	target := s.Config.Resolve(q.Get("username"), q.Get("repo"), r.Header.Get(TokenHeader))

	if err := target.Validate(); err != nil {
		s.Logger.Warn("Invalid target in request", "owner", target.Owner, "repo", target.Repo, "error", err)
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return target, nil, false
	}

	if target.Token == "" {
		s.respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing GitHub token"})
		return target, nil, false
	}

	client, err := s.NewClient(target.Token)
	if err != nil {
		s.Logger.Error("Failed to create GitHub client", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create GitHub client"})
		return target, nil, false
	}

	return target, client, true
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
