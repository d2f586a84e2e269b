package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/SwissLife-OSS/escmd/internal/retry"
	"github.com/docker/go-units"
	"github.com/urfave/cli/v3"
)

func rollover(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	target := cmd.Args().First()
	if target == "" {
		return fmt.Errorf("datastream or alias is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := client.Rollover(ctx, target)
	if err != nil {
		return err
	}

	logger := log.WithComponent("rollover")
	logger.Info().Str("target", target).Str("new_index", res.NewIndex).Bool("rolled_over", res.RolledOver).Msg("rollover done")

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, res)
	}

	return renderTable(w, []string{"Old index", "New index", "Rolled over"}, [][]string{
		{res.OldIndex, res.NewIndex, strconv.FormatBool(res.RolledOver)},
	})
}

func freeze(ctx context.Context, cmd *cli.Command) error {
	index := cmd.Args().First()
	if index == "" {
		return fmt.Errorf("index is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	names, err := client.IndexNames(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, index) {
		return fmt.Errorf("index %q not found", index)
	}

	if err := client.Freeze(ctx, index); err != nil {
		return err
	}

	return printDone(stdout(cmd), fmt.Sprintf("Index %q frozen", index))
}

// unfreeze unfreezes the index named by the argument or, with --regex, all
// indices matching it.
func unfreeze(ctx context.Context, cmd *cli.Command) error {
	pattern := cmd.Args().First()
	if pattern == "" {
		return fmt.Errorf("index or pattern is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	indices, err := client.Indices(ctx)
	if err != nil {
		return err
	}

	var matching []es.IndexInfo
	if cmd.Bool("regex") {
		re, err := compileFilter(pattern)
		if err != nil {
			return err
		}
		for _, index := range indices {
			if re.MatchString(index.Name) {
				matching = append(matching, index)
			}
		}
	} else {
		for _, index := range indices {
			if index.Name == pattern {
				matching = append(matching, index)
			}
		}
	}

	if len(matching) == 0 {
		return fmt.Errorf("no indices found matching %q", pattern)
	}

	w := stdout(cmd)

	data := make([][]string, 0, len(matching))
	for _, index := range matching {
		data = append(data, []string{index.Name, healthStyle(index.Health).Render(index.Health), index.Status, strconv.FormatInt(index.DocsCount, 10), units.BytesSize(float64(index.StoreSize))})
	}
	if err := renderTable(w, []string{"Index", "Health", "Status", "Docs", "Size"}, data); err != nil {
		return err
	}

	if len(matching) > 1 && !cmd.Bool("yes") {
		ok, err := confirm(stdin(cmd), w, fmt.Sprintf("Unfreeze %d indices? [y/N] ", len(matching)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Aborted, nothing was changed.")
			return nil
		}
	}

	logger := log.WithComponent("unfreeze")

	var failed int
	for _, index := range matching {
		if err := client.Unfreeze(ctx, index.Name); err != nil {
			failed++
			logger.Warn().Err(err).Str("index", index.Name).Msg("unfreeze failed")
			fmt.Fprintf(w, "%s %s: %v\n", styleError.Render("failed"), index.Name, err)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", styleOK.Render("unfrozen"), index.Name)
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d indices could not be unfrozen", failed, len(matching)), 2)
	}
	return nil
}

func flush(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	stats, err := flushWithRetry(ctx, client, retry.Policy{
		Attempts: cmd.Int("max-retries") + 1,
		Delay:    cmd.Duration("retry-delay"),
	})
	if err != nil && !errors.Is(err, errShardsFailed) {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		if jsonErr := writeJSON(w, stats); jsonErr != nil {
			return jsonErr
		}
	} else {
		tableErr := renderTable(w, []string{"Total shards", "Successful", "Failed"}, [][]string{
			{strconv.FormatInt(stats.Total, 10), strconv.FormatInt(stats.Successful, 10), strconv.FormatInt(stats.Failed, 10)},
		})
		if tableErr != nil {
			return tableErr
		}
	}

	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

var errShardsFailed = errors.New("shards failed to flush")

type flusher interface {
	Flush(ctx context.Context) (es.ShardStats, error)
}

// flushWithRetry flushes until no shard fails. The stats of the last attempt
// are returned also if all attempts failed.
func flushWithRetry(ctx context.Context, client flusher, policy retry.Policy) (es.ShardStats, error) {
	logger := log.WithComponent("flush")

	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("flush incomplete")
	}

	stats, err := retry.Do(ctx, policy, func(ctx context.Context) (es.ShardStats, error) {
		stats, err := client.Flush(ctx)
		if err != nil {
			return stats, err
		}
		if stats.Failed > 0 {
			return stats, fmt.Errorf("%w: %d of %d", errShardsFailed, stats.Failed, stats.Total)
		}
		return stats, nil
	})
	if err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}

	logger.Info().Int64("shards", stats.Total).Msg("flush completed")
	return stats, nil
}
