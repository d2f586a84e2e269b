// Package reconcile implements bulk reconciliation of a per-index setting
// (ILM policy, replica count) against a desired value.
//
// A run resolves a candidate set of indices, classifies every candidate into
// a Plan without touching the cluster, and then applies the plan's updates
// with a bounded pool of workers. The result of every run has the same
// shape, independent of the setting being reconciled, so reporting is shared.
package reconcile

import (
	"context"
)

// Skip reasons recorded in Plan.ToSkip.
const (
	ReasonAlreadyAtTarget = "already at target"
	ReasonFiltered        = "filtered out by no-op-only mode"
	ReasonUndetermined    = "could not determine current value"
)

// DefaultMaxConcurrent is used when no positive concurrency is given.
const DefaultMaxConcurrent = 5

// IndexDescriptor identifies one candidate index together with the current
// value of the setting under reconciliation. A nil Current means the value
// could not be determined.
type IndexDescriptor[V comparable] struct {
	Name    string `json:"name"`
	Current *V     `json:"current_value"`
}

// Update is a planned change for one index.
type Update[V comparable] struct {
	Index   IndexDescriptor[V] `json:"index"`
	Current V                  `json:"current_value"`
	Target  V                  `json:"target_value"`
}

// Skip is a candidate the plan will not touch, with the reason why.
type Skip[V comparable] struct {
	Index  IndexDescriptor[V] `json:"index"`
	Reason string             `json:"reason"`
}

// Plan is the full decision set of one run. ToUpdate and ToSkip partition
// the candidates, both in candidate order.
type Plan[V comparable] struct {
	Target          V           `json:"target_value"`
	ToUpdate        []Update[V] `json:"to_update"`
	ToSkip          []Skip[V]   `json:"to_skip"`
	TotalCandidates int         `json:"total_candidates"`
}

// Filter narrows the set of indices eligible for an update. Candidates for
// which Keep returns false are skipped with Reason.
type Filter[V comparable] struct {
	Reason string
	Keep   func(current V) bool
}

// ApplyFunc performs the single write for one index. Returning an error
// wrapping ErrSkip records the index as skipped instead of failed.
type ApplyFunc[V comparable] func(ctx context.Context, index string, current, target V) error

// IndexLister lists the index names of the cluster.
type IndexLister interface {
	IndexNames(ctx context.Context) ([]string, error)
}

// PolicyClient is the part of the cluster capability needed to reconcile ILM
// policies. An index without a policy reports the empty string.
type PolicyClient interface {
	IndexLister
	CurrentPolicy(ctx context.Context, index string) (string, error)
	PolicyExists(ctx context.Context, policy string) (bool, error)
	SetPolicy(ctx context.Context, index, policy string) error
	RemovePolicy(ctx context.Context, index string) error
}

// ReplicaClient is the part of the cluster capability needed to reconcile
// replica counts.
type ReplicaClient interface {
	IndexLister
	ReplicaCount(ctx context.Context, index string) (int, error)
	SetReplicaCount(ctx context.Context, index string, count int) error
}
