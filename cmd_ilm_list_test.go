package main

import (
	"testing"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/stretchr/testify/require"
)

func Test_formatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 90 * time.Minute, want: "1h30m0s"},
		{d: day, want: "1d"},
		{d: 3*day + 5*time.Hour, want: "3d"},
		{d: year, want: "1y0d"},
		{d: 2*year + 40*day, want: "2y40d"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, formatDuration(tc.d))
		})
	}
}

func Test_phaseLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{a: "hot", b: "warm", want: true},
		{a: "warm", b: "hot", want: false},
		{a: "frozen", b: "delete", want: true},
		{a: "delete", b: "custom", want: true},
		{a: "custom", b: "hot", want: false},
		{a: "hot", b: "hot", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.a+"<"+tc.b, func(t *testing.T) {
			require.Equal(t, tc.want, phaseLess(tc.a, tc.b))
		})
	}
}

func Test_filterILM(t *testing.T) {
	explained := []es.ILMIndex{
		{Index: "logs-01", Managed: true, Policy: "logs", Phase: "hot", Age: 2 * day},
		{Index: "logs-02", Managed: true, Policy: "logs", Phase: "warm", Age: 10 * day},
		{Index: "metrics-01", Managed: true, Policy: "metrics", Phase: "warm", Age: 40 * day},
		{Index: "plain", Managed: false},
	}
	sizes := map[string]int64{
		"logs-01":    100,
		"logs-02":    5000,
		"metrics-01": 20000,
	}

	tests := []struct {
		name    string
		phase   string
		policy  string
		minSize int64
		minAge  time.Duration
		want    []string
	}{
		{
			name: "all managed",
			want: []string{"logs-01", "logs-02", "metrics-01"},
		},
		{
			name:  "phase",
			phase: "warm",
			want:  []string{"logs-02", "metrics-01"},
		},
		{
			name:   "policy",
			policy: "logs",
			want:   []string{"logs-01", "logs-02"},
		},
		{
			name:    "min size",
			minSize: 1000,
			want:    []string{"logs-02", "metrics-01"},
		},
		{
			name:   "min age",
			minAge: 30 * day,
			want:   []string{"metrics-01"},
		},
		{
			name:   "nothing matches",
			phase:  "cold",
			policy: "logs",
			want:   []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries := filterILM(explained, sizes, tc.phase, tc.policy, tc.minSize, tc.minAge)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.Index)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func Test_sortILM(t *testing.T) {
	input := []ilmListEntry{
		{Index: "c", Phase: "warm", Age: 5 * day, Size: 10},
		{Index: "a", Phase: "hot", Age: 1 * day, Size: 30},
		{Index: "b", Phase: "warm", Age: 9 * day, Size: 20},
		{Index: "d", Phase: "hot", Age: 3 * day, Size: 30},
	}

	tests := []struct {
		name           string
		multiplePhases bool
		sortColumns    []string
		want           []string
	}{
		{
			name: "by name",
			want: []string{"a", "b", "c", "d"},
		},
		{
			name:           "by phase then name",
			multiplePhases: true,
			want:           []string{"a", "d", "b", "c"},
		},
		{
			name:           "by phase then age",
			multiplePhases: true,
			sortColumns:    []string{"age"},
			want:           []string{"d", "a", "b", "c"},
		},
		{
			name:        "by size then age",
			sortColumns: []string{"size", "age"},
			want:        []string{"d", "a", "b", "c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries := make([]ilmListEntry, len(input))
			copy(entries, input)

			sortILM(entries, tc.multiplePhases, tc.sortColumns)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.Index)
			}
			require.Equal(t, tc.want, got)
		})
	}
}
