// Package journal keeps a local history of reconciliation runs in a bbolt
// database.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	bolt "go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned by Get if a run id prefix matches several runs.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// Entry is the summary of one run together with its full report.
type Entry struct {
	RunID     string          `json:"run_id"`
	Operation string          `json:"operation"`
	Cluster   string          `json:"cluster"`
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Timestamp time.Time       `json:"timestamp"`
	DryRun    bool            `json:"dry_run"`
	Planned   int             `json:"planned"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Cancelled bool            `json:"cancelled"`
	Duration  time.Duration   `json:"duration"`
	Report    json.RawMessage `json:"report"`
}

// NewEntry summarizes report for the journal. format renders the target
// value.
func NewEntry[V comparable](cluster string, report *reconcile.Report[V], format func(V) string) (Entry, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return Entry{}, fmt.Errorf("encode report: %w", err)
	}

	entry := Entry{
		RunID:     report.RunID,
		Operation: report.Operation,
		Cluster:   cluster,
		Source:    report.Source,
		Target:    format(report.Plan.Target),
		Timestamp: report.Timestamp,
		DryRun:    report.DryRun,
		Planned:   len(report.Plan.ToUpdate),
		Report:    raw,
	}

	if res := report.Results; res != nil {
		entry.Succeeded = len(res.Successful)
		entry.Failed = len(res.Failed)
		entry.Skipped = len(res.Skipped)
		entry.Cancelled = res.Cancelled
		entry.Duration = res.Duration()
	}

	return entry, nil
}

// Journal is the run history store.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRuns, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores entry. Keys sort by time, so List returns runs in order.
func (j *Journal) Record(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(key(entry), data)
	})
}

// List returns the most recent runs, newest first. A limit <= 0 returns all
// runs.
func (j *Journal) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}

			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Get returns the run whose id starts with prefix.
func (j *Journal) Get(prefix string) (*Entry, error) {
	if prefix == "" {
		return nil, ErrNotFound
	}

	var found *Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			_, runID, _ := strings.Cut(string(k), "/")
			if !strings.HasPrefix(runID, prefix) {
				return nil
			}
			if found != nil {
				return fmt.Errorf("%w: %q", ErrAmbiguous, prefix)
			}

			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			found = &entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, prefix)
	}
	return found, nil
}

func key(entry Entry) []byte {
	return []byte(entry.Timestamp.UTC().Format("20060102T150405.000000000") + "/" + entry.RunID)
}
