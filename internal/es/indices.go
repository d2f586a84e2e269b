package es

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/bytes"
	"github.com/tidwall/sjson"
)

// IndexInfo is one index of the cluster as listed by the cat API.
type IndexInfo struct {
	Name      string `json:"index"`
	Health    string `json:"health"`
	Status    string `json:"status"`
	Primaries int    `json:"pri"`
	Replicas  int    `json:"rep"`
	DocsCount int64  `json:"docs_count"`
	StoreSize int64  `json:"store_size"`
}

// Indices lists all indices, sizes in bytes.
func (c *Client) Indices(ctx context.Context) ([]IndexInfo, error) {
	records, err := c.es.Cat.Indices().H("health", "status", "index", "pri", "rep", "docs.count", "store.size").Bytes(bytes.B).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}

	indices := make([]IndexInfo, 0, len(records))
	for _, record := range records {
		info := IndexInfo{
			Name:   deref(record.Index),
			Health: deref(record.Health),
			Status: deref(record.Status),
		}

		// Closed indices report no counts, keep them at zero.
		info.Primaries, _ = strconv.Atoi(deref(record.Pri))
		info.Replicas, _ = strconv.Atoi(deref(record.Rep))
		info.DocsCount, _ = strconv.ParseInt(deref(record.DocsCount), 10, 64)
		info.StoreSize, _ = strconv.ParseInt(deref(record.StoreSize), 10, 64)

		indices = append(indices, info)
	}

	sort.Slice(indices, func(i, j int) bool {
		return indices[i].Name < indices[j].Name
	})

	return indices, nil
}

// IndexNames returns the names of all indices, sorted.
func (c *Client) IndexNames(ctx context.Context) ([]string, error) {
	records, err := c.es.Cat.Indices().H("index").Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, record := range records {
		if record.Index != nil {
			names = append(names, *record.Index)
		}
	}
	sort.Strings(names)

	return names, nil
}

// ReplicaCount returns the configured number of replicas of index.
func (c *Client) ReplicaCount(ctx context.Context, index string) (int, error) {
	records, err := c.es.Cat.Indices().Index(index).H("index", "rep").Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("read replicas of %q: %w", index, err)
	}

	for _, record := range records {
		if deref(record.Index) != index {
			continue
		}

		n, err := strconv.Atoi(deref(record.Rep))
		if err != nil {
			return 0, fmt.Errorf("read replicas of %q: %w", index, err)
		}
		return n, nil
	}

	return 0, fmt.Errorf("index %q not found", index)
}

// SetReplicaCount updates index.number_of_replicas of index.
func (c *Client) SetReplicaCount(ctx context.Context, index string, count int) error {
	return c.putIndexSetting(ctx, index, "index.number_of_replicas", count)
}

// CurrentPolicy returns the ILM policy of index, the empty string if the
// index is not managed by ILM.
func (c *Client) CurrentPolicy(ctx context.Context, index string) (string, error) {
	res, err := c.es.Ilm.ExplainLifecycle(index).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("explain lifecycle of %q: %w", index, err)
	}

	switch explain := res.Indices[index].(type) {
	case *types.LifecycleExplainManaged:
		return deref(explain.Policy), nil
	case *types.LifecycleExplainUnmanaged:
		return "", nil
	default:
		return "", fmt.Errorf("index %q missing in lifecycle explanation", index)
	}
}

// PolicyExists reports whether an ILM policy with the given name exists.
func (c *Client) PolicyExists(ctx context.Context, policy string) (bool, error) {
	policies, err := c.es.Ilm.GetLifecycle().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("get lifecycle policies: %w", err)
	}

	_, ok := policies[policy]
	return ok, nil
}

// SetPolicy assigns the ILM policy to index.
func (c *Client) SetPolicy(ctx context.Context, index, policy string) error {
	return c.putIndexSetting(ctx, index, "index.lifecycle.name", policy)
}

// RemovePolicy detaches index from its ILM policy.
func (c *Client) RemovePolicy(ctx context.Context, index string) error {
	res, err := c.es.Ilm.RemovePolicy(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("remove policy from %q: %w", index, err)
	}

	if res.HasFailures {
		return fmt.Errorf("remove policy failed for %s", strings.Join(res.FailedIndexes, ", "))
	}

	return nil
}

// ExcludeIndexFromNode keeps the shards of index off the named node.
func (c *Client) ExcludeIndexFromNode(ctx context.Context, index, node string) error {
	return c.putIndexSetting(ctx, index, "index.routing.allocation.exclude._name", node)
}

// ResetIndexExclusion clears the node exclusion of index.
func (c *Client) ResetIndexExclusion(ctx context.Context, index string) error {
	return c.putIndexSetting(ctx, index, "index.routing.allocation.exclude._name", nil)
}

// putIndexSetting sets one index setting, a nil value resets it to its
// default.
func (c *Client) putIndexSetting(ctx context.Context, index, setting string, value any) error {
	body, err := sjson.Set("", setting, value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", setting, err)
	}

	c.log.Debug().Str("index", index).Str("settings", body).Msg("put index settings")

	res, err := c.es.Indices.PutSettings().Indices(index).Raw(strings.NewReader(body)).Do(ctx)
	if err != nil {
		return fmt.Errorf("update %s of %q: %w", setting, index, err)
	}

	if !res.Acknowledged {
		return fmt.Errorf("update %s of %q has not been acknowledged", setting, index)
	}

	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
