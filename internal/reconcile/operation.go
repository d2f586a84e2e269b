package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Operation names as used in reports and saved results.
const (
	OpRemovePolicy = "remove_policy"
	OpSetPolicy    = "set_policy"
	OpSetReplicas  = "set_replicas"
)

// ReasonNoReplicasOnly is the skip reason of the zero replica filter.
const ReasonNoReplicasOnly = "filtered out: only indices with 0 replicas"

// Operation wires resolution, planning and execution for one kind of
// setting.
type Operation[V comparable] struct {
	Name     string
	Resolver *Resolver[V]
	Apply    ApplyFunc[V]
	Filter   *Filter[V]
	Format   func(V) string

	// Precheck validates the target before any candidate is resolved.
	Precheck func(ctx context.Context, target V) error

	// annotate adds operation specific fields to a report.
	annotate func(r *Report[V])
}

// Plan validates the input, resolves the candidates and classifies them. It
// does not write to the cluster.
func (op *Operation[V]) Plan(ctx context.Context, src Source, target V) (Plan[V], error) {
	if err := src.Validate(); err != nil {
		return Plan[V]{}, err
	}

	if op.Precheck != nil {
		if err := op.Precheck(ctx, target); err != nil {
			return Plan[V]{}, err
		}
	}

	candidates, err := op.Resolver.Resolve(ctx, src)
	if err != nil {
		return Plan[V]{}, err
	}

	return BuildPlan(candidates, target, op.Filter), nil
}

// Execute applies, or simulates, the updates of plan.
func (op *Operation[V]) Execute(ctx context.Context, plan Plan[V], opts ExecOptions[V]) *Result {
	if opts.Format == nil {
		opts.Format = op.Format
	}
	if opts.Log == nil {
		opts.Log = op.Resolver.Log
	}

	return Execute(ctx, plan.ToUpdate, op.Apply, opts)
}

// NewReport starts the report of a run of op for plan. Results are filled in
// once the plan has been executed.
func (op *Operation[V]) NewReport(src Source, plan Plan[V], dryRun bool) *Report[V] {
	r := &Report[V]{
		Operation: op.Name,
		Source:    src.String(),
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		DryRun:    dryRun,
		Plan:      plan,
	}
	if op.annotate != nil {
		op.annotate(r)
	}
	return r
}

// FormatValue renders v the way the operation reports it.
func (op *Operation[V]) FormatValue(v V) string {
	if op.Format == nil {
		return fmt.Sprint(v)
	}
	return op.Format(v)
}

// NewRemovePolicy reconciles indices towards having no ILM policy.
// Use the empty string as target.
func NewRemovePolicy(c PolicyClient, concurrency int, log *zerolog.Logger) *Operation[string] {
	return &Operation[string]{
		Name: OpRemovePolicy,
		Resolver: &Resolver[string]{
			Lister:      c,
			Read:        c.CurrentPolicy,
			Concurrency: concurrency,
			Log:         log,
		},
		Apply: func(ctx context.Context, index, _, _ string) error {
			return c.RemovePolicy(ctx, index)
		},
		Format: FormatPolicy,
	}
}

// NewSetPolicy reconciles indices towards the target ILM policy. The policy
// must exist on the cluster.
func NewSetPolicy(c PolicyClient, concurrency int, log *zerolog.Logger) *Operation[string] {
	return &Operation[string]{
		Name: OpSetPolicy,
		Resolver: &Resolver[string]{
			Lister:      c,
			Read:        c.CurrentPolicy,
			Concurrency: concurrency,
			Log:         log,
		},
		Apply: func(ctx context.Context, index, _, policy string) error {
			return c.SetPolicy(ctx, index, policy)
		},
		Format: FormatPolicy,
		Precheck: func(ctx context.Context, policy string) error {
			if policy == "" {
				return fmt.Errorf("%w: policy name is empty", ErrPolicyNotFound)
			}

			ok, err := c.PolicyExists(ctx, policy)
			if err != nil {
				return fmt.Errorf("check policy %q: %w", policy, err)
			}
			if !ok {
				return fmt.Errorf("%w: %q", ErrPolicyNotFound, policy)
			}
			return nil
		},
		annotate: func(r *Report[string]) {
			r.PolicyName = r.Plan.Target
		},
	}
}

// NewFixReplicas reconciles indices towards the target replica count. With
// noReplicasOnly, only indices currently without replicas are updated.
func NewFixReplicas(c ReplicaClient, concurrency int, noReplicasOnly bool, log *zerolog.Logger) *Operation[int] {
	op := &Operation[int]{
		Name: OpSetReplicas,
		Resolver: &Resolver[int]{
			Lister:      c,
			Read:        c.ReplicaCount,
			Concurrency: concurrency,
			Log:         log,
		},
		Apply: func(ctx context.Context, index string, _, count int) error {
			return c.SetReplicaCount(ctx, index, count)
		},
		Format: strconv.Itoa,
		Precheck: func(_ context.Context, count int) error {
			if count < 0 {
				return fmt.Errorf("replica count must not be negative, got %d", count)
			}
			return nil
		},
		annotate: func(r *Report[int]) {
			count := r.Plan.Target
			r.ReplicaCount = &count
		},
	}

	if noReplicasOnly {
		op.Filter = &Filter[int]{
			Reason: ReasonNoReplicasOnly,
			Keep:   func(current int) bool { return current == 0 },
		}
	}

	return op
}

// FormatPolicy renders an ILM policy name, "none" for no policy.
func FormatPolicy(policy string) string {
	if policy == "" {
		return "none"
	}
	return policy
}
