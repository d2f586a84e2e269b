package reconcile

// BuildPlan classifies every candidate, in order, into an update or a skip.
// It performs no I/O, so a dry run and a later real run against the same
// cluster state produce the same plan.
//
// A candidate is skipped if its current value is unknown, if filter rejects
// it, or if it already has the target value.
func BuildPlan[V comparable](candidates []IndexDescriptor[V], target V, filter *Filter[V]) Plan[V] {
	plan := Plan[V]{
		Target:          target,
		ToUpdate:        make([]Update[V], 0, len(candidates)),
		ToSkip:          make([]Skip[V], 0),
		TotalCandidates: len(candidates),
	}

	for _, candidate := range candidates {
		switch {
		case candidate.Current == nil:
			plan.ToSkip = append(plan.ToSkip, Skip[V]{Index: candidate, Reason: ReasonUndetermined})

		case filter != nil && filter.Keep != nil && !filter.Keep(*candidate.Current):
			reason := filter.Reason
			if reason == "" {
				reason = ReasonFiltered
			}
			plan.ToSkip = append(plan.ToSkip, Skip[V]{Index: candidate, Reason: reason})

		case *candidate.Current == target:
			plan.ToSkip = append(plan.ToSkip, Skip[V]{Index: candidate, Reason: ReasonAlreadyAtTarget})

		default:
			plan.ToUpdate = append(plan.ToUpdate, Update[V]{Index: candidate, Current: *candidate.Current, Target: target})
		}
	}

	return plan
}

// IndexNames returns the names of the indices the plan will update.
func (p Plan[V]) IndexNames() []string {
	names := make([]string, 0, len(p.ToUpdate))
	for _, u := range p.ToUpdate {
		names = append(names, u.Index.Name)
	}
	return names
}
