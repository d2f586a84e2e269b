package es

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/tidwall/gjson"
)

// Phases in lifecycle order.
var Phases = []string{"hot", "warm", "cold", "frozen", "delete"}

// ILMIndex is the lifecycle state of one index.
type ILMIndex struct {
	Index   string        `json:"index"`
	Managed bool          `json:"managed"`
	Policy  string        `json:"policy,omitempty"`
	Phase   string        `json:"phase,omitempty"`
	Action  string        `json:"action,omitempty"`
	Step    string        `json:"step,omitempty"`
	Age     time.Duration `json:"age,omitempty"`
}

// ILMError is a managed index stuck in the ERROR step.
type ILMError struct {
	Index      string `json:"index"`
	Policy     string `json:"policy"`
	Phase      string `json:"phase"`
	Action     string `json:"action"`
	FailedStep string `json:"failed_step"`
	Type       string `json:"error_type"`
	Reason     string `json:"reason"`
}

// Policy is one ILM policy and the phases it defines.
type Policy struct {
	Name   string   `json:"name"`
	Phases []string `json:"phases"`
}

// StepKey identifies an ILM step.
type StepKey struct {
	Phase  string
	Action string
	Step   string
}

// ILMStatus returns the operation mode of ILM, e.g. RUNNING.
func (c *Client) ILMStatus(ctx context.Context) (string, error) {
	body, err := c.perform(ctx, "GET", "/_ilm/status", nil)
	if err != nil {
		return "", err
	}

	return gjson.GetBytes(body, "operation_mode").String(), nil
}

// Policies lists all ILM policies, sorted by name.
func (c *Client) Policies(ctx context.Context) ([]Policy, error) {
	lifecycles, err := c.es.Ilm.GetLifecycle().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get lifecycle policies: %w", err)
	}

	policies := make([]Policy, 0, len(lifecycles))
	for name, lifecycle := range lifecycles {
		policies = append(policies, Policy{Name: name, Phases: definedPhases(lifecycle.Policy.Phases)})
	}

	sort.Slice(policies, func(i, j int) bool {
		return policies[i].Name < policies[j].Name
	})

	return policies, nil
}

// PolicyDefinesPhase reports whether the named policy has a definition for
// phase.
func (c *Client) PolicyDefinesPhase(ctx context.Context, policy, phase string) (bool, error) {
	lifecycles, err := c.es.Ilm.GetLifecycle().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("get lifecycle policies: %w", err)
	}

	lifecycle, ok := lifecycles[policy]
	if !ok {
		return false, fmt.Errorf("policy %q not found", policy)
	}

	for _, p := range definedPhases(lifecycle.Policy.Phases) {
		if p == phase {
			return true, nil
		}
	}
	return false, nil
}

func definedPhases(phases types.Phases) []string {
	defined := []*types.Phase{phases.Hot, phases.Warm, phases.Cold, phases.Frozen, phases.Delete}

	names := make([]string, 0, len(defined))
	for i, phase := range defined {
		if phase != nil {
			names = append(names, Phases[i])
		}
	}
	return names
}

// Explain returns the lifecycle state of all indices matching pattern,
// sorted by index name.
func (c *Client) Explain(ctx context.Context, pattern string, onlyManaged bool) ([]ILMIndex, error) {
	res, err := c.es.Ilm.ExplainLifecycle(pattern).OnlyManaged(onlyManaged).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("explain lifecycle of %q: %w", pattern, err)
	}

	indices := make([]ILMIndex, 0, len(res.Indices))
	for name, explain := range res.Indices {
		managed, ok := explain.(*types.LifecycleExplainManaged)
		if !ok {
			indices = append(indices, ILMIndex{Index: name})
			continue
		}

		age, err := ParseDuration(managed.Age)
		if err != nil {
			return nil, fmt.Errorf("age of %q: %w", name, err)
		}

		indices = append(indices, ILMIndex{
			Index:   name,
			Managed: true,
			Policy:  deref(managed.Policy),
			Phase:   deref(managed.Phase),
			Action:  deref(managed.Action),
			Step:    deref(managed.Step),
			Age:     age,
		})
	}

	sort.Slice(indices, func(i, j int) bool {
		return indices[i].Index < indices[j].Index
	})

	return indices, nil
}

// Errors returns the managed indices matching pattern that are in the ERROR
// step.
func (c *Client) Errors(ctx context.Context, pattern string) ([]ILMError, error) {
	body, err := c.perform(ctx, "GET", "/"+url.PathEscape(pattern)+"/_ilm/explain?only_errors=true", nil)
	if err != nil {
		return nil, err
	}

	var errs []ILMError
	gjson.GetBytes(body, "indices").ForEach(func(key, value gjson.Result) bool {
		errs = append(errs, ILMError{
			Index:      key.String(),
			Policy:     value.Get("policy").String(),
			Phase:      value.Get("phase").String(),
			Action:     value.Get("action").String(),
			FailedStep: value.Get("failed_step").String(),
			Type:       value.Get("step_info.type").String(),
			Reason:     value.Get("step_info.reason").String(),
		})
		return true
	})

	sort.Slice(errs, func(i, j int) bool {
		return errs[i].Index < errs[j].Index
	})

	return errs, nil
}

// MoveToPhase moves index from its current step to the start of phase.
func (c *Client) MoveToPhase(ctx context.Context, index string, current StepKey, phase string) error {
	res, err := c.es.Ilm.MoveToStep(index).CurrentStep(&types.StepKey{
		Phase:  current.Phase,
		Action: &current.Action,
		Name:   &current.Step,
	}).NextStep(&types.StepKey{
		Phase: phase,
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("move %q to phase %q: %w", index, phase, err)
	}

	if !res.Acknowledged {
		return fmt.Errorf("move operation for %q has not been acknowledged", index)
	}

	return nil
}

// ParseDuration parses the duration format of Elasticsearch to a Go duration.
// ES duration does support days, which are not supported by Go durations. For
// simplicity reasons, days are just converted to 24 hours. This is not the
// correct thing to do in all cases (e.g. daylight saving), but it does not
// matter for index ages.
func ParseDuration(esDuration types.Duration) (time.Duration, error) {
	if esDuration == nil {
		return 0, nil
	}

	durationStr, ok := esDuration.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type for types.Duration, got %T, want: string", esDuration)
	}

	if strings.HasSuffix(durationStr, "d") {
		// Days are not supported by go durations, handle it manually
		durationStr = strings.TrimSuffix(durationStr, "d")
		days, err := strconv.ParseFloat(durationStr, 64)
		if err != nil {
			return 0, err
		}

		return time.Duration(days * float64(24*time.Hour)), nil
	}

	return time.ParseDuration(durationStr)
}
