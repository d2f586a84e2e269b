package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/SwissLife-OSS/escmd/internal/retry"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// Outcomes of deleting one dangling index.
const (
	danglingDeleted      = "deleted"
	danglingAlreadyGone  = "already_gone"
	danglingMaybeDeleted = "timeout"
	danglingFailed       = "failed"
	danglingWouldDelete  = "would_delete"
)

type danglingResult struct {
	UUID   string `json:"index_uuid"`
	Name   string `json:"index_name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type danglingDeleter interface {
	DeleteDangling(ctx context.Context, uuid string) error
}

func dangling(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	uuid := cmd.Args().First()
	cleanupAll := cmd.Bool("cleanup-all")
	del := cmd.Bool("delete")

	if del && uuid == "" {
		return fmt.Errorf("--delete requires the uuid of a dangling index")
	}
	if cleanupAll && uuid != "" {
		return fmt.Errorf("--cleanup-all does not take a uuid")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	indices, err := client.DanglingIndices(ctx)
	if err != nil {
		return err
	}

	w := stdout(cmd)

	if !del && !cleanupAll {
		if uuid != "" {
			indices = filterDangling(indices, uuid)
		}
		if format == formatJSON {
			if indices == nil {
				indices = []es.DanglingIndex{}
			}
			return writeJSON(w, indices)
		}
		return printDangling(cmd, indices)
	}

	targets := indices
	if del {
		targets = filterDangling(indices, uuid)
		if len(targets) == 0 {
			return fmt.Errorf("no dangling index with uuid %q", uuid)
		}
	}

	dryRun := cmd.Bool("dry-run")
	if cleanupAll && !dryRun && !cmd.Bool("yes-i-really-mean-it") {
		return fmt.Errorf("deleting all %d dangling indices requires --yes-i-really-mean-it", len(targets))
	}

	policy := retry.Policy{
		Attempts: cmd.Int("max-retries"),
		Delay:    cmd.Duration("retry-delay"),
		Timeout:  cmd.Duration("timeout"),
	}
	logger := log.WithComponent("dangling")

	results := make([]danglingResult, 0, len(targets))
	for _, index := range targets {
		if dryRun {
			results = append(results, danglingResult{UUID: index.UUID, Name: index.Name, Status: danglingWouldDelete})
			continue
		}
		results = append(results, deleteDangling(ctx, client, index, policy, &logger))
	}

	if format == formatJSON {
		if err := writeJSON(w, map[string]any{"dry_run": dryRun, "results": results}); err != nil {
			return err
		}
	} else {
		data := make([][]string, 0, len(results))
		for _, r := range results {
			data = append(data, []string{r.UUID, r.Name, danglingStyle(r.Status).Render(r.Status), r.Detail})
		}
		if err := renderTable(w, []string{"UUID", "Index", "Status", "Detail"}, data); err != nil {
			return err
		}
	}

	var failed int
	for _, r := range results {
		if r.Status == danglingFailed {
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d dangling indices could not be deleted", failed, len(results)), 2)
	}
	return nil
}

// deleteDangling deletes one dangling index with retries. Timeouts and
// unavailable clusters are expected while the master processes the deletion:
// a timeout on the last attempt is reported as possibly deleted, an index
// that is already gone counts as deleted.
func deleteDangling(ctx context.Context, client danglingDeleter, index es.DanglingIndex, policy retry.Policy, logger *zerolog.Logger) danglingResult {
	result := danglingResult{UUID: index.UUID, Name: index.Name}
	attempts := max(policy.Attempts, 1)

	var (
		attempt     int
		alreadyGone bool
		timedOut    bool
	)

	policy.OnRetry = func(n int, err error, wait time.Duration) {
		logger.Warn().Err(err).Str("uuid", index.UUID).Int("attempt", n).Dur("retry_in", wait).Msg("deleting dangling index failed")
	}

	_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		attempt++

		err := client.DeleteDangling(ctx, index.UUID)
		switch {
		case err == nil:
			return struct{}{}, nil
		case isDanglingNotFound(err):
			alreadyGone = true
			return struct{}{}, nil
		case isDanglingTimeout(err) && attempt >= attempts:
			timedOut = true
			return struct{}{}, nil
		default:
			return struct{}{}, err
		}
	})

	switch {
	case err != nil:
		result.Status = danglingFailed
		result.Detail = err.Error()
		logger.Error().Err(err).Str("uuid", index.UUID).Int("attempts", attempt).Msg("failed to delete dangling index")
	case alreadyGone:
		result.Status = danglingAlreadyGone
		result.Detail = "no dangling index found, already cleaned up"
		logger.Warn().Str("uuid", index.UUID).Msg("dangling index already gone")
	case timedOut:
		result.Status = danglingMaybeDeleted
		result.Detail = "timed out, deletion may still complete in the background"
		logger.Warn().Str("uuid", index.UUID).Int("attempts", attempt).Msg(result.Detail)
	default:
		result.Status = danglingDeleted
		logger.Info().Str("uuid", index.UUID).Str("index", index.Name).Msg("dangling index deleted")
	}

	return result
}

func isDanglingNotFound(err error) bool {
	return strings.Contains(err.Error(), "No dangling index found")
}

func isDanglingTimeout(err error) bool {
	var apiErr *es.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 503 {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "process_cluster_event_timeout_exception") ||
		strings.Contains(strings.ToLower(msg), "timeout") ||
		strings.Contains(msg, "503")
}

func filterDangling(indices []es.DanglingIndex, uuid string) []es.DanglingIndex {
	var selected []es.DanglingIndex
	for _, index := range indices {
		if index.UUID == uuid {
			selected = append(selected, index)
		}
	}
	return selected
}

func printDangling(cmd *cli.Command, indices []es.DanglingIndex) error {
	w := stdout(cmd)

	if len(indices) == 0 {
		fmt.Fprintln(w, styleOK.Render("No dangling indices found"))
		return nil
	}

	data := make([][]string, 0, len(indices))
	for _, index := range indices {
		data = append(data, []string{index.UUID, index.Name, index.CreationDate.Format(time.RFC3339), strings.Join(index.NodeIDs, ", ")})
	}

	return renderTable(w, []string{"UUID", "Index", "Created", "Nodes"}, data)
}

func danglingStyle(status string) lipgloss.Style {
	switch status {
	case danglingDeleted, danglingAlreadyGone:
		return styleOK
	case danglingMaybeDeleted, danglingWouldDelete:
		return styleWarn
	default:
		return styleError
	}
}
