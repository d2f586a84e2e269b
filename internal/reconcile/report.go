package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Report is the persisted and JSON rendered form of one run.
type Report[V comparable] struct {
	Operation    string    `json:"operation"`
	PolicyName   string    `json:"policy_name,omitempty"`
	ReplicaCount *int      `json:"replica_count,omitempty"`
	Source       string    `json:"source"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	DryRun       bool      `json:"dry_run"`
	Plan         Plan[V]   `json:"plan"`
	Results      *Result   `json:"results"`
}

// Failed reports whether any update of the run failed.
func (r *Report[V]) Failed() bool {
	return r.Results != nil && len(r.Results.Failed) > 0
}

// Marshal renders the report as indented JSON.
func (r *Report[V]) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Save writes the report as JSON to path.
func (r *Report[V]) Save(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save report to %q: %w", path, err)
	}
	return nil
}
