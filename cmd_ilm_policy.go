package main

import (
	"context"
	"fmt"

	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/urfave/cli/v3"
)

func ilmRemovePolicy(ctx context.Context, cmd *cli.Command) error {
	client, cluster, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	logger := log.WithComponent("reconcile")
	op := reconcile.NewRemovePolicy(client, cmd.Int("max-concurrent"), &logger)

	return runReconcile(ctx, cmd, cluster, op, sourceFromFlags(cmd, cmd.Args().First()), "")
}

func ilmSetPolicy(ctx context.Context, cmd *cli.Command) error {
	policy := cmd.Args().First()
	if policy == "" {
		return fmt.Errorf("policy name is required")
	}

	client, cluster, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	logger := log.WithComponent("reconcile")
	op := reconcile.NewSetPolicy(client, cmd.Int("max-concurrent"), &logger)

	return runReconcile(ctx, cmd, cluster, op, sourceFromFlags(cmd, cmd.Args().Get(1)), policy)
}

func setReplicas(ctx context.Context, cmd *cli.Command) error {
	if !cmd.IsSet("count") {
		return fmt.Errorf("--count is required")
	}

	client, cluster, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	logger := log.WithComponent("reconcile")
	op := reconcile.NewFixReplicas(client, cmd.Int("max-concurrent"), cmd.Bool("no-replicas-only"), &logger)

	pattern := cmd.String("pattern")
	if pattern == "" {
		pattern = cmd.Args().First()
	}

	return runReconcile(ctx, cmd, cluster, op, sourceFromFlags(cmd, pattern), cmd.Int("count"))
}
