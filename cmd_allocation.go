package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/urfave/cli/v3"
)

func allocationExcludeList(ctx context.Context, cmd *cli.Command) error {
	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	excluded, err := client.ExcludedNodes(ctx)
	if err != nil {
		return err
	}

	return printExcluded(cmd, excluded)
}

func allocationExcludeAdd(ctx context.Context, cmd *cli.Command) error {
	node := cmd.Args().First()
	if node == "" {
		return fmt.Errorf("node name is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	excluded, err := client.ExcludeNode(ctx, node)
	if err != nil {
		return err
	}

	logger := log.WithComponent("allocation")
	logger.Info().Str("node", node).Strs("excluded", excluded).Msg("node excluded from allocation")

	return printExcluded(cmd, excluded)
}

func allocationExcludeRemove(ctx context.Context, cmd *cli.Command) error {
	node := cmd.Args().First()
	if node == "" {
		return fmt.Errorf("node name is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	excluded, err := client.IncludeNode(ctx, node)
	if err != nil {
		return err
	}

	logger := log.WithComponent("allocation")
	logger.Info().Str("node", node).Strs("excluded", excluded).Msg("node included in allocation")

	return printExcluded(cmd, excluded)
}

func allocationExcludeReset(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes-i-really-mean-it") {
		return fmt.Errorf("resetting the allocation exclusion list requires --yes-i-really-mean-it")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.ResetExcludedNodes(ctx); err != nil {
		return err
	}

	logger := log.WithComponent("allocation")
	logger.Info().Msg("allocation exclusion list reset")

	return printExcluded(cmd, nil)
}

func printExcluded(cmd *cli.Command, excluded []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		if excluded == nil {
			excluded = []string{}
		}
		return writeJSON(w, map[string][]string{"excluded_nodes": excluded})
	}

	if len(excluded) == 0 {
		fmt.Fprintln(w, styleOK.Render("No nodes are excluded from allocation"))
		return nil
	}

	fmt.Fprintf(w, "Excluded from allocation: %s\n", styleWarn.Render(strings.Join(excluded, ", ")))
	return nil
}

func excludeIndex(ctx context.Context, cmd *cli.Command) error {
	index := cmd.Args().First()
	server := cmd.String("server")
	if index == "" {
		return fmt.Errorf("index is required")
	}
	if server == "" {
		return fmt.Errorf("--server is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.ExcludeIndexFromNode(ctx, index, server); err != nil {
		return err
	}

	return printDone(stdout(cmd), fmt.Sprintf("Index %q will be moved away from %q", index, server))
}

func excludeIndexReset(ctx context.Context, cmd *cli.Command) error {
	index := cmd.Args().First()
	if index == "" {
		return fmt.Errorf("index is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	if err := client.ResetIndexExclusion(ctx, index); err != nil {
		return err
	}

	return printDone(stdout(cmd), fmt.Sprintf("Allocation exclusion of index %q reset", index))
}

func printDone(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, styleOK.Render(msg))
	return err
}
