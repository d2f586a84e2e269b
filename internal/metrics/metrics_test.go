package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserver(t *testing.T) {
	r := NewRecorder()
	obs := r.Observer("prod", reconcile.OpSetPolicy)

	obs.ItemCompleted(reconcile.Outcome{Index: "a", Status: reconcile.StatusSuccess})
	obs.ItemCompleted(reconcile.Outcome{Index: "b", Status: reconcile.StatusSuccess})
	obs.ItemCompleted(reconcile.Outcome{Index: "c", Status: reconcile.StatusFailed})

	require.InDelta(t, 2, testutil.ToFloat64(r.items.WithLabelValues("prod", "set_policy", "success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.items.WithLabelValues("prod", "set_policy", "failed")), 0)
}

func TestRecordRun(t *testing.T) {
	r := NewRecorder()
	start := time.Unix(1700000000, 0)

	report := &reconcile.Report[int]{
		Operation: reconcile.OpSetReplicas,
		Plan: reconcile.Plan[int]{
			ToUpdate: make([]reconcile.Update[int], 3),
			ToSkip:   make([]reconcile.Skip[int], 2),
		},
		Results: &reconcile.Result{
			StartTime: start,
			EndTime:   start.Add(1500 * time.Millisecond),
			Cancelled: true,
		},
	}

	RecordRun(r, "prod", report)

	require.InDelta(t, 3, testutil.ToFloat64(r.planned.WithLabelValues("prod", "set_replicas", "update")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(r.planned.WithLabelValues("prod", "set_replicas", "skip")), 0)
	require.InDelta(t, 1.5, testutil.ToFloat64(r.duration.WithLabelValues("prod", "set_replicas")), 1e-9)
	require.InDelta(t, 1700000001, testutil.ToFloat64(r.lastRun.WithLabelValues("prod", "set_replicas")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.cancelled.WithLabelValues("prod", "set_replicas")), 0)
}

func TestRecordRunWithoutResult(t *testing.T) {
	r := NewRecorder()

	RecordRun(r, "prod", &reconcile.Report[string]{Operation: reconcile.OpRemovePolicy})

	require.Equal(t, 2, testutil.CollectAndCount(r.planned))
	require.Equal(t, 0, testutil.CollectAndCount(r.duration))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observer("prod", reconcile.OpRemovePolicy).ItemCompleted(reconcile.Outcome{Status: reconcile.StatusSuccess})

	path := filepath.Join(t.TempDir(), "escmd.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data),
		`escmd_reconcile_items_total{cluster="prod",operation="remove_policy",status="success"} 1`))
}
