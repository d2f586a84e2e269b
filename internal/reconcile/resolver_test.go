package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		wantErr error
	}{
		{name: "none", src: Source{}, wantErr: ErrMissingInput},
		{name: "pattern", src: Source{Pattern: "logs"}},
		{name: "list", src: Source{Indices: []string{"a"}}},
		{name: "file", src: Source{File: "x.json"}},
		{name: "pattern and list", src: Source{Pattern: "logs", Indices: []string{"a"}}, wantErr: ErrAmbiguousInput},
		{name: "all", src: Source{Pattern: "logs", Indices: []string{"a"}, File: "x.json"}, wantErr: ErrAmbiguousInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.src.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSourceString(t *testing.T) {
	require.Equal(t, "pattern-^logs", Source{Pattern: "^logs"}.String())
	require.Equal(t, "indices-a,b", Source{Indices: []string{"a", "b"}}.String())
	require.Equal(t, "/tmp/x.json", Source{File: "/tmp/x.json"}.String())
}

func policyResolver(f *fakeCluster) *Resolver[string] {
	return &Resolver[string]{Lister: f, Read: f.CurrentPolicy, Concurrency: 2}
}

func TestResolverByPattern(t *testing.T) {
	f := newFakeCluster()
	f.names = []string{"Logs-01", "logs-02", "metrics-01", "app-logs"}
	f.policies = map[string]string{"Logs-01": "a", "logs-02": "", "app-logs": "b"}

	got, err := policyResolver(f).ByPattern(context.Background(), "logs-0")
	require.NoError(t, err)
	require.Equal(t, []IndexDescriptor[string]{
		{Name: "Logs-01", Current: ptr("a")},
		{Name: "logs-02", Current: ptr("")},
	}, got)

	got, err = policyResolver(f).ByPattern(context.Background(), "logs")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "app-logs", got[2].Name)
}

func TestResolverByPatternInvalid(t *testing.T) {
	f := newFakeCluster()
	f.listErr = errors.New("must not be called")

	_, err := policyResolver(f).ByPattern(context.Background(), "logs-(")
	require.ErrorIs(t, err, ErrInvalidPattern)
}

func TestResolverByPatternListError(t *testing.T) {
	f := newFakeCluster()
	f.listErr = errors.New("connection refused")

	_, err := policyResolver(f).ByPattern(context.Background(), "logs")
	require.ErrorContains(t, err, "connection refused")
}

func TestResolverByListKeepsUnreadable(t *testing.T) {
	f := newFakeCluster()
	f.policies = map[string]string{"a": "hot-warm"}

	got, err := policyResolver(f).ByList(context.Background(), []string{"a", " missing ", "a", ""})
	require.NoError(t, err)
	require.Equal(t, []IndexDescriptor[string]{
		{Name: "a", Current: ptr("hot-warm")},
		{Name: "missing"},
	}, got)
}

func TestResolverCancelled(t *testing.T) {
	f := newFakeCluster()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := policyResolver(f).ByList(ctx, []string{"a"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadIndexFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr error
	}{
		{name: "list", content: `["a", "b"]`, want: []string{"a", "b"}},
		{name: "object", content: `{"indices": ["a"], "comment": "x"}`, want: []string{"a"}},
		{name: "empty list", content: `[]`, want: []string{}},
		{name: "malformed", content: `["a",`, wantErr: ErrInvalidFormat},
		{name: "object without indices", content: `{"names": ["a"]}`, wantErr: ErrInvalidFormat},
		{name: "string", content: `"a"`, wantErr: ErrInvalidFormat},
		{name: "non string entry", content: `["a", 1]`, wantErr: ErrInvalidFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "indices.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			got, err := ReadIndexFile(path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestReadIndexFileMissing(t *testing.T) {
	_, err := ReadIndexFile(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestResolveByFile(t *testing.T) {
	f := newFakeCluster()
	f.replicas = map[string]int{"a": 0, "b": 1}

	path := filepath.Join(t.TempDir(), "indices.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"indices": ["b", "a", "b"]}`), 0o600))

	r := &Resolver[int]{Lister: f, Read: f.ReplicaCount}
	got, err := r.Resolve(context.Background(), Source{File: path})
	require.NoError(t, err)
	require.Equal(t, []IndexDescriptor[int]{
		{Name: "b", Current: ptr(1)},
		{Name: "a", Current: ptr(0)},
	}, got)
}
