package history

import "time"

// Action names what was attempted against a deployment.
const (
	ActionDeactivate = "deactivate"
	ActionDelete     = "delete"
	ActionClean      = "clean"
	ActionKeep       = "keep"
)

// Record is one audited action in the database
type Record struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	Repo         string    `json:"repo"`
	DeploymentID int64     `json:"deployment_id"`
	Action       string    `json:"action"`
	Outcome      string    `json:"outcome"`           // ok, failed, kept, cleaned, failed-deactivate, failed-delete, skipped
	Message      *string   `json:"message,omitempty"` // nullable
	CreatedAt    time.Time `json:"created_at"`
}
