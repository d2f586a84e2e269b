package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/docker/go-units"
	"github.com/urfave/cli/v3"
)

func health(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	h, err := client.Health(ctx)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, h)
	}

	fmt.Fprintf(w, "Cluster %s is %s\n", h.ClusterName, healthStyle(h.Status).Render(h.Status))

	return renderTable(w, []string{"Metric", "Value"}, [][]string{
		{"Nodes", strconv.Itoa(h.Nodes)},
		{"Data nodes", strconv.Itoa(h.DataNodes)},
		{"Active primary shards", strconv.Itoa(h.ActivePrimaryShards)},
		{"Active shards", strconv.Itoa(h.ActiveShards)},
		{"Relocating shards", strconv.Itoa(h.RelocatingShards)},
		{"Initializing shards", strconv.Itoa(h.InitializingShards)},
		{"Unassigned shards", strconv.Itoa(h.UnassignedShards)},
		{"Pending tasks", strconv.Itoa(h.PendingTasks)},
		{"Active shards percent", strconv.FormatFloat(h.ActiveShardsPercent, 'f', 1, 64) + "%"},
	})
}

func listIndices(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	filter, err := compileFilter(cmd.Args().First())
	if err != nil {
		return err
	}

	status := cmd.String("status")
	allowedStatus := []string{"", "green", "yellow", "red"}
	if !slices.Contains(allowedStatus, status) {
		return fmt.Errorf("status %q is invalid, valid values are: %v", status, allowedStatus[1:])
	}

	var minSize int64
	if s := cmd.String("min-size"); s != "" {
		minSize, err = units.FromHumanSize(s)
		if err != nil {
			return fmt.Errorf("failed to parse minimum size: %w", err)
		}
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	indices, err := client.Indices(ctx)
	if err != nil {
		return err
	}

	selected := indices[:0]
	for _, index := range indices {
		if !matches(filter, index.Name) {
			continue
		}
		if status != "" && index.Health != status {
			continue
		}
		if index.StoreSize < minSize {
			continue
		}
		selected = append(selected, index)
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, selected)
	}

	data := make([][]string, 0, len(selected))
	for _, index := range selected {
		data = append(data, []string{
			index.Name,
			healthStyle(index.Health).Render(index.Health),
			index.Status,
			strconv.Itoa(index.Primaries),
			strconv.Itoa(index.Replicas),
			strconv.FormatInt(index.DocsCount, 10),
			units.BytesSize(float64(index.StoreSize)),
		})
	}

	return renderTable(w, []string{"Index", "Health", "Status", "Pri", "Rep", "Docs", "Size"}, data)
}

func listNodes(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	nodes, err := client.Nodes(ctx)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, nodes)
	}

	data := make([][]string, 0, len(nodes))
	for _, node := range nodes {
		master := ""
		if node.Master {
			master = "*"
		}
		data = append(data, []string{
			node.Name,
			node.IP,
			node.Roles,
			master,
			strconv.FormatInt(node.HeapPercent, 10) + "%",
			strconv.FormatFloat(node.DiskUsedPercent, 'f', 1, 64) + "%",
		})
	}

	return renderTable(w, []string{"Name", "IP", "Roles", "Master", "Heap", "Disk"}, data)
}

func listShards(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	filter, err := compileFilter(cmd.Args().First())
	if err != nil {
		return err
	}
	server := cmd.String("server")

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	shards, err := client.Shards(ctx)
	if err != nil {
		return err
	}

	selected := shards[:0]
	for _, shard := range shards {
		if !matches(filter, shard.Index) {
			continue
		}
		if server != "" && shard.Node != server {
			continue
		}
		selected = append(selected, shard)
	}

	if cmd.Bool("size") {
		slices.SortStableFunc(selected, func(a, b es.Shard) int {
			return cmp.Compare(b.Store, a.Store)
		})
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, selected)
	}

	data := make([][]string, 0, len(selected))
	for _, shard := range selected {
		prirep := "r"
		if shard.Primary {
			prirep = "p"
		}
		data = append(data, []string{
			shard.Index,
			strconv.FormatInt(shard.Shard, 10),
			prirep,
			shard.State,
			strconv.FormatInt(shard.Docs, 10),
			units.BytesSize(float64(shard.Store)),
			shard.Node,
		})
	}

	return renderTable(w, []string{"Index", "Shard", "Pri/Rep", "State", "Docs", "Size", "Node"}, data)
}

func listSnapshots(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	filter, err := compileFilter(cmd.Args().First())
	if err != nil {
		return err
	}

	client, cluster, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	repository := cmd.String("repository")
	if repository == "" {
		repository = cluster.SnapshotRepository
	}
	if repository == "" {
		return fmt.Errorf("no snapshot repository configured, use --repository")
	}

	snapshots, err := client.Snapshots(ctx, repository)
	if err != nil {
		return err
	}

	selected := snapshots[:0]
	for _, snapshot := range snapshots {
		if matches(filter, snapshot.Name) {
			selected = append(selected, snapshot)
		}
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, selected)
	}

	data := make([][]string, 0, len(selected))
	for _, s := range selected {
		data = append(data, []string{
			s.Name,
			s.State,
			s.StartTime.Format(time.RFC3339),
			formatDuration(s.Duration),
			strconv.Itoa(s.Indices),
			fmt.Sprintf("%d/%d", s.ShardsSuccessful, s.ShardsTotal),
		})
	}

	return renderTable(w, []string{"Snapshot", "State", "Started", "Duration", "Indices", "Shards"}, data)
}
