package es

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// RolloverResult describes a completed rollover.
type RolloverResult struct {
	OldIndex   string `json:"old_index"`
	NewIndex   string `json:"new_index"`
	RolledOver bool   `json:"rolled_over"`
	DryRun     bool   `json:"dry_run"`
}

// Rollover rolls the datastream or alias target over to a new index.
func (c *Client) Rollover(ctx context.Context, target string) (*RolloverResult, error) {
	body, err := c.perform(ctx, "POST", "/"+url.PathEscape(target)+"/_rollover", nil)
	if err != nil {
		return nil, err
	}

	var result RolloverResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode rollover response: %w", err)
	}

	return &result, nil
}

// Freeze makes index read only and releases its memory footprint.
func (c *Client) Freeze(ctx context.Context, index string) error {
	body, err := c.perform(ctx, "POST", "/"+url.PathEscape(index)+"/_freeze", nil)
	if err != nil {
		return err
	}
	return acknowledged(body, fmt.Sprintf("freeze of %q", index))
}

// Unfreeze reverts Freeze.
func (c *Client) Unfreeze(ctx context.Context, index string) error {
	body, err := c.perform(ctx, "POST", "/"+url.PathEscape(index)+"/_unfreeze", nil)
	if err != nil {
		return err
	}
	return acknowledged(body, fmt.Sprintf("unfreeze of %q", index))
}

// DanglingIndex is an index found on disk of a node but missing in the
// cluster state.
type DanglingIndex struct {
	Name         string    `json:"index_name"`
	UUID         string    `json:"index_uuid"`
	CreationDate time.Time `json:"creation_date"`
	NodeIDs      []string  `json:"node_ids"`
}

// DanglingIndices lists the dangling indices of the cluster.
func (c *Client) DanglingIndices(ctx context.Context) ([]DanglingIndex, error) {
	body, err := c.perform(ctx, "GET", "/_dangling", nil)
	if err != nil {
		return nil, err
	}

	var dangling []DanglingIndex
	for _, item := range gjson.GetBytes(body, "dangling_indices").Array() {
		index := DanglingIndex{
			Name:         item.Get("index_name").String(),
			UUID:         item.Get("index_uuid").String(),
			CreationDate: time.UnixMilli(item.Get("creation_date_millis").Int()).UTC(),
			NodeIDs:      []string{},
		}
		for _, id := range item.Get("node_ids").Array() {
			index.NodeIDs = append(index.NodeIDs, id.String())
		}
		dangling = append(dangling, index)
	}

	return dangling, nil
}

// DeleteDangling deletes the dangling index with the given uuid. The cluster
// requires accepting the data loss explicitly.
func (c *Client) DeleteDangling(ctx context.Context, uuid string) error {
	body, err := c.perform(ctx, "DELETE", "/_dangling/"+url.PathEscape(uuid)+"?accept_data_loss=true", nil)
	if err != nil {
		return err
	}
	return acknowledged(body, fmt.Sprintf("deletion of dangling index %q", uuid))
}
