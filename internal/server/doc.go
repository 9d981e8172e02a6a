// Package server implements the JSON web API for listing and cleaning up
// GitHub deployments.
//
// This package provides:
//   - Deployment listing with each deployment's latest state resolved
//   - Single-deployment deactivate and delete endpoints
//   - Background cleanup jobs run on a bounded task pool, polled by job id
//   - The local audit history, when a database is configured
//   - Per-IP rate limiting, CORS for a separately served front end, and
//     structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/ghclient: GitHub deployments API client
//   - internal/cleanup: keep-latest cleanup workflow and per-repository locks
//   - internal/tasks: background job pool
//   - internal/history: SQLite-based audit history
//
// Every /api request targets the configured repository unless both the
// username and repo query parameters are given. The X-GitHub-Token header
// replaces the configured token for that request.
package server
