package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPlanPolicy(t *testing.T) {
	candidates := []IndexDescriptor[string]{
		{Name: "logs-01", Current: ptr("policy-a")},
		{Name: "logs-02", Current: ptr("policy-b")},
		{Name: "logs-03"},
	}

	plan := BuildPlan(candidates, "policy-b", nil)

	require.Equal(t, []Update[string]{
		{Index: candidates[0], Current: "policy-a", Target: "policy-b"},
	}, plan.ToUpdate)
	require.Equal(t, []Skip[string]{
		{Index: candidates[1], Reason: ReasonAlreadyAtTarget},
		{Index: candidates[2], Reason: ReasonUndetermined},
	}, plan.ToSkip)
	require.Equal(t, 3, plan.TotalCandidates)
	require.Equal(t, []string{"logs-01"}, plan.IndexNames())
}

func TestBuildPlanNoReplicasOnly(t *testing.T) {
	candidates := []IndexDescriptor[int]{
		{Name: "a", Current: ptr(0)},
		{Name: "b", Current: ptr(1)},
		{Name: "c", Current: ptr(0)},
	}
	filter := &Filter[int]{Reason: ReasonNoReplicasOnly, Keep: func(n int) bool { return n == 0 }}

	plan := BuildPlan(candidates, 1, filter)

	require.Equal(t, []string{"a", "c"}, plan.IndexNames())
	require.Len(t, plan.ToSkip, 1)
	require.Equal(t, "b", plan.ToSkip[0].Index.Name)
}

func TestBuildPlanFilterReason(t *testing.T) {
	candidates := []IndexDescriptor[int]{
		{Name: "a", Current: ptr(2)},
		{Name: "b", Current: ptr(1)},
	}

	plan := BuildPlan(candidates, 1, &Filter[int]{Keep: func(n int) bool { return n == 0 }})
	require.Empty(t, plan.ToUpdate)
	require.Equal(t, ReasonFiltered, plan.ToSkip[0].Reason)
	require.Equal(t, ReasonFiltered, plan.ToSkip[1].Reason)

	plan = BuildPlan(candidates, 1, &Filter[int]{Reason: ReasonNoReplicasOnly, Keep: func(n int) bool { return n == 0 }})
	require.Equal(t, ReasonNoReplicasOnly, plan.ToSkip[0].Reason)
}

func TestBuildPlanPartition(t *testing.T) {
	var candidates []IndexDescriptor[int]
	for i := range 50 {
		d := IndexDescriptor[int]{Name: string(rune('a'+i%26)) + string(rune('0'+i/26))}
		if i%7 != 0 {
			d.Current = ptr(i % 4)
		}
		candidates = append(candidates, d)
	}
	filter := &Filter[int]{Keep: func(n int) bool { return n != 3 }}

	plan := BuildPlan(candidates, 2, filter)

	require.Equal(t, len(candidates), len(plan.ToUpdate)+len(plan.ToSkip))
	require.Equal(t, len(candidates), plan.TotalCandidates)

	seen := map[string]bool{}
	for _, u := range plan.ToUpdate {
		require.NotEqual(t, 2, u.Current)
		seen[u.Index.Name] = true
	}
	for _, s := range plan.ToSkip {
		require.False(t, seen[s.Index.Name], "%s in both sets", s.Index.Name)
		seen[s.Index.Name] = true
	}
	require.Len(t, seen, len(candidates))

	require.Equal(t, plan, BuildPlan(candidates, 2, filter))
}

func TestBuildPlanEmpty(t *testing.T) {
	plan := BuildPlan[string](nil, "x", nil)
	require.Empty(t, plan.ToUpdate)
	require.Empty(t, plan.ToSkip)
	require.Zero(t, plan.TotalCandidates)
}
