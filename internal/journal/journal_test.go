package journal

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func TestNewEntry(t *testing.T) {
	start := time.Now()
	report := &reconcile.Report[int]{
		Operation: reconcile.OpSetReplicas,
		Source:    "pattern-logs",
		RunID:     "run-1",
		Timestamp: start,
		Plan: reconcile.Plan[int]{
			Target:   1,
			ToUpdate: []reconcile.Update[int]{{Current: 0, Target: 1}, {Current: 0, Target: 1}},
		},
		Results: &reconcile.Result{
			Successful:     []reconcile.Outcome{{Index: "a", Status: reconcile.StatusSuccess}},
			Failed:         []reconcile.Outcome{{Index: "b", Status: reconcile.StatusFailed}},
			TotalProcessed: 2,
			StartTime:      start,
			EndTime:        start.Add(2 * time.Second),
		},
	}

	entry, err := NewEntry("prod", report, strconv.Itoa)
	require.NoError(t, err)
	require.Equal(t, "1", entry.Target)
	require.Equal(t, "prod", entry.Cluster)
	require.Equal(t, 2, entry.Planned)
	require.Equal(t, 1, entry.Succeeded)
	require.Equal(t, 1, entry.Failed)
	require.Equal(t, 2*time.Second, entry.Duration)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(entry.Report, &doc))
	require.Equal(t, "set_replicas", doc["operation"])
}

func TestRecordListGet(t *testing.T) {
	j := openJournal(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"aaa111", "bbb222", "aab333"} {
		require.NoError(t, j.Record(Entry{
			RunID:     id,
			Operation: reconcile.OpRemovePolicy,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "aab333", entries[0].RunID)
	require.Equal(t, "aaa111", entries[2].RunID)

	entries, err = j.List(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entry, err := j.Get("bbb")
	require.NoError(t, err)
	require.Equal(t, "bbb222", entry.RunID)
	require.True(t, entry.Timestamp.Equal(base.Add(time.Minute)))

	_, err = j.Get("aa")
	require.ErrorIs(t, err, ErrAmbiguous)

	_, err = j.Get("zzz")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(Entry{RunID: "r1", Timestamp: time.Now()}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
