package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/stretchr/testify/require"
)

func Test_confirmPrompt(t *testing.T) {
	tests := []struct {
		op     string
		target string
		want   string
	}{
		{op: reconcile.OpRemovePolicy, target: "none", want: "Remove ILM policy from 3 indices. Continue? [y/N] "},
		{op: reconcile.OpSetPolicy, target: "hot-warm", want: "Set ILM policy hot-warm on 3 indices. Continue? [y/N] "},
		{op: reconcile.OpSetReplicas, target: "2", want: "Set 2 replicas on 3 indices. Continue? [y/N] "},
	}

	for _, tc := range tests {
		t.Run(tc.op, func(t *testing.T) {
			require.Equal(t, tc.want, confirmPrompt(tc.op, tc.target, 3))
		})
	}
}

func Test_progressObserver(t *testing.T) {
	outcomes := []reconcile.Outcome{
		{Index: "logs-01", Status: reconcile.StatusSuccess},
		{Index: "logs-02", Status: reconcile.StatusFailed, Detail: "boom"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		var seen []reconcile.Outcome
		obs := progressObserver(&buf, formatTable, len(outcomes), reconcile.ObserverFunc(func(o reconcile.Outcome) {
			seen = append(seen, o)
		}))

		for _, o := range outcomes {
			obs.ItemCompleted(o)
		}

		require.Equal(t, outcomes, seen)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		require.Contains(t, lines[0], "[1/2] logs-01")
		require.Contains(t, lines[1], "[2/2] logs-02")
		require.Contains(t, lines[1], string(reconcile.StatusFailed))
		require.NotContains(t, buf.String(), "boom")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		var seen int
		obs := progressObserver(&buf, formatJSON, len(outcomes), reconcile.ObserverFunc(func(reconcile.Outcome) {
			seen++
		}))

		for _, o := range outcomes {
			obs.ItemCompleted(o)
		}

		require.Equal(t, 2, seen)
		require.Empty(t, buf.String())
	})
}
