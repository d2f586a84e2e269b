package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/SwissLife-OSS/escmd/internal/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	errs  []error
	calls int
}

func (f *fakeDeleter) DeleteDangling(context.Context, string) error {
	err := f.errs[min(f.calls, len(f.errs)-1)]
	f.calls++
	return err
}

func Test_deleteDangling(t *testing.T) {
	unavailable := &es.APIError{Method: http.MethodDelete, Path: "/_dangling/abc", Status: http.StatusServiceUnavailable, Type: "cluster_block_exception", Reason: "blocked"}

	tests := []struct {
		name       string
		errs       []error
		wantStatus string
		wantCalls  int
	}{
		{
			name:       "deleted",
			errs:       []error{nil},
			wantStatus: danglingDeleted,
			wantCalls:  1,
		},
		{
			name:       "deleted after retry",
			errs:       []error{errors.New("connection reset"), nil},
			wantStatus: danglingDeleted,
			wantCalls:  2,
		},
		{
			name:       "already gone",
			errs:       []error{errors.New("illegal_argument_exception: No dangling index found for UUID [abc]")},
			wantStatus: danglingAlreadyGone,
			wantCalls:  1,
		},
		{
			name:       "timeout on last attempt",
			errs:       []error{errors.New("process_cluster_event_timeout_exception: failed to process cluster event")},
			wantStatus: danglingMaybeDeleted,
			wantCalls:  3,
		},
		{
			name:       "unavailable on last attempt",
			errs:       []error{unavailable},
			wantStatus: danglingMaybeDeleted,
			wantCalls:  3,
		},
		{
			name:       "failed",
			errs:       []error{errors.New("security_exception: action is unauthorized")},
			wantStatus: danglingFailed,
			wantCalls:  3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeDeleter{errs: tc.errs}
			logger := zerolog.Nop()

			res := deleteDangling(context.Background(), client, es.DanglingIndex{UUID: "abc", Name: "logs-old"}, retry.Policy{Attempts: 3, Delay: time.Millisecond}, &logger)

			require.Equal(t, tc.wantStatus, res.Status)
			require.Equal(t, "abc", res.UUID)
			require.Equal(t, "logs-old", res.Name)
			require.Equal(t, tc.wantCalls, client.calls)
		})
	}
}

func Test_filterDangling(t *testing.T) {
	indices := []es.DanglingIndex{{UUID: "a", Name: "one"}, {UUID: "b", Name: "two"}}

	require.Equal(t, []es.DanglingIndex{{UUID: "b", Name: "two"}}, filterDangling(indices, "b"))
	require.Empty(t, filterDangling(indices, "c"))
}
