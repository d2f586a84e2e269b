package es

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Health is the cluster health summary.
type Health struct {
	ClusterName         string  `json:"cluster_name"`
	Status              string  `json:"status"`
	TimedOut            bool    `json:"timed_out"`
	Nodes               int     `json:"number_of_nodes"`
	DataNodes           int     `json:"number_of_data_nodes"`
	ActivePrimaryShards int     `json:"active_primary_shards"`
	ActiveShards        int     `json:"active_shards"`
	RelocatingShards    int     `json:"relocating_shards"`
	InitializingShards  int     `json:"initializing_shards"`
	UnassignedShards    int     `json:"unassigned_shards"`
	PendingTasks        int     `json:"number_of_pending_tasks"`
	ActiveShardsPercent float64 `json:"active_shards_percent_as_number"`
}

// Health returns the cluster health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	body, err := c.perform(ctx, "GET", "/_cluster/health", nil)
	if err != nil {
		return nil, err
	}

	var health Health
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("decode cluster health: %w", err)
	}

	return &health, nil
}

// Node is one node of the cluster.
type Node struct {
	Name            string  `json:"name"`
	IP              string  `json:"ip"`
	Roles           string  `json:"roles"`
	Master          bool    `json:"master"`
	HeapPercent     int64   `json:"heap_percent"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
}

// Nodes lists the nodes of the cluster, sorted by name.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	body, err := c.perform(ctx, "GET", "/_cat/nodes?format=json&h=name,ip,node.role,master,heap.percent,disk.used_percent", nil)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	for _, row := range gjson.ParseBytes(body).Array() {
		nodes = append(nodes, Node{
			Name:            row.Get("name").String(),
			IP:              row.Get("ip").String(),
			Roles:           row.Get(`node\.role`).String(),
			Master:          row.Get("master").String() == "*",
			HeapPercent:     row.Get(`heap\.percent`).Int(),
			DiskUsedPercent: row.Get(`disk\.used_percent`).Float(),
		})
	}

	slices.SortFunc(nodes, func(a, b Node) int {
		return strings.Compare(a.Name, b.Name)
	})

	return nodes, nil
}

// Shard is one shard copy.
type Shard struct {
	Index   string `json:"index"`
	Shard   int64  `json:"shard"`
	Primary bool   `json:"primary"`
	State   string `json:"state"`
	Docs    int64  `json:"docs"`
	Store   int64  `json:"store"`
	Node    string `json:"node"`
}

// Shards lists all shards, sizes in bytes.
func (c *Client) Shards(ctx context.Context) ([]Shard, error) {
	body, err := c.perform(ctx, "GET", "/_cat/shards?format=json&bytes=b&h=index,shard,prirep,state,docs,store,node", nil)
	if err != nil {
		return nil, err
	}

	var shards []Shard
	for _, row := range gjson.ParseBytes(body).Array() {
		shards = append(shards, Shard{
			Index:   row.Get("index").String(),
			Shard:   row.Get("shard").Int(),
			Primary: row.Get("prirep").String() == "p",
			State:   row.Get("state").String(),
			Docs:    row.Get("docs").Int(),
			Store:   row.Get("store").Int(),
			Node:    row.Get("node").String(),
		})
	}

	return shards, nil
}

const excludeNameSetting = "cluster.routing.allocation.exclude._name"

// ExcludedNodes returns the node names excluded from shard allocation by the
// transient cluster settings.
func (c *Client) ExcludedNodes(ctx context.Context) ([]string, error) {
	body, err := c.perform(ctx, "GET", "/_cluster/settings", nil)
	if err != nil {
		return nil, err
	}

	return splitNames(gjson.GetBytes(body, "transient."+excludeNameSetting).String()), nil
}

// ExcludeNode adds node to the allocation exclusion list. Returns the new list.
func (c *Client) ExcludeNode(ctx context.Context, node string) ([]string, error) {
	excluded, err := c.ExcludedNodes(ctx)
	if err != nil {
		return nil, err
	}

	node = strings.TrimSpace(node)
	if slices.Contains(excluded, node) {
		return excluded, nil
	}
	excluded = append(excluded, node)

	if err := c.putTransient(ctx, excludeNameSetting, strings.Join(excluded, ",")); err != nil {
		return nil, err
	}
	return excluded, nil
}

// IncludeNode removes node from the allocation exclusion list. Returns the new
// list.
func (c *Client) IncludeNode(ctx context.Context, node string) ([]string, error) {
	excluded, err := c.ExcludedNodes(ctx)
	if err != nil {
		return nil, err
	}

	node = strings.TrimSpace(node)
	remaining := slices.DeleteFunc(excluded, func(name string) bool { return name == node })

	var value any
	if len(remaining) > 0 {
		value = strings.Join(remaining, ",")
	}
	if err := c.putTransient(ctx, excludeNameSetting, value); err != nil {
		return nil, err
	}
	return remaining, nil
}

// ResetExcludedNodes clears the allocation exclusion list.
func (c *Client) ResetExcludedNodes(ctx context.Context) error {
	return c.putTransient(ctx, excludeNameSetting, nil)
}

func (c *Client) putTransient(ctx context.Context, setting string, value any) error {
	// The setting is sent as a flat key.
	body, err := sjson.SetBytes(nil, "transient."+strings.ReplaceAll(setting, ".", `\.`), value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", setting, err)
	}

	res, err := c.perform(ctx, "PUT", "/_cluster/settings", body)
	if err != nil {
		return err
	}

	return acknowledged(res, "cluster settings update")
}

// ShardStats are the shard counters of a broadcast operation.
type ShardStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
}

// Flush flushes all indices once.
func (c *Client) Flush(ctx context.Context) (ShardStats, error) {
	body, err := c.perform(ctx, "POST", "/_flush", nil)
	if err != nil {
		return ShardStats{}, err
	}

	shards := gjson.GetBytes(body, "_shards")
	return ShardStats{
		Total:      shards.Get("total").Int(),
		Successful: shards.Get("successful").Int(),
		Failed:     shards.Get("failed").Int(),
	}, nil
}

func splitNames(list string) []string {
	names := []string{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
