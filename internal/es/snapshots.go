package es

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/tidwall/gjson"
)

// Snapshot is one snapshot of a repository.
type Snapshot struct {
	Name             string        `json:"snapshot"`
	State            string        `json:"state"`
	StartTime        time.Time     `json:"start_time"`
	Duration         time.Duration `json:"duration"`
	Indices          int           `json:"indices"`
	ShardsTotal      int64         `json:"shards_total"`
	ShardsFailed     int64         `json:"shards_failed"`
	ShardsSuccessful int64         `json:"shards_successful"`
}

// Snapshots lists the snapshots of repository, oldest first.
func (c *Client) Snapshots(ctx context.Context, repository string) ([]Snapshot, error) {
	body, err := c.perform(ctx, "GET", "/_snapshot/"+url.PathEscape(repository)+"/_all", nil)
	if err != nil {
		return nil, err
	}

	var snapshots []Snapshot
	for _, item := range gjson.GetBytes(body, "snapshots").Array() {
		snapshots = append(snapshots, Snapshot{
			Name:             item.Get("snapshot").String(),
			State:            item.Get("state").String(),
			StartTime:        time.UnixMilli(item.Get("start_time_in_millis").Int()).UTC(),
			Duration:         time.Duration(item.Get("duration_in_millis").Int()) * time.Millisecond,
			Indices:          len(item.Get("indices").Array()),
			ShardsTotal:      item.Get("shards.total").Int(),
			ShardsFailed:     item.Get("shards.failed").Int(),
			ShardsSuccessful: item.Get("shards.successful").Int(),
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].StartTime.Before(snapshots[j].StartTime)
	})

	return snapshots, nil
}
