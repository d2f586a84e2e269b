package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/urfave/cli/v3"
)

func ilmMove(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run")
	force := cmd.Bool("force")
	indexPattern := cmd.Args().First()
	targetPhase := cmd.String("target-phase")

	if indexPattern == "" {
		return fmt.Errorf("index pattern is required")
	}

	var dryRunPrefix string
	if dryRun {
		dryRunPrefix = "(DRY RUN) "
	}

	if !slices.Contains(es.Phases, targetPhase) {
		return fmt.Errorf("target-phase %q is invalid, valid values are: %v", targetPhase, es.Phases)
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	explained, err := client.Explain(ctx, indexPattern, true)
	if err != nil {
		return err
	}

	policies, err := client.Policies(ctx)
	if err != nil {
		return err
	}

	phasesByPolicy := make(map[string][]string, len(policies))
	for _, p := range policies {
		phasesByPolicy[p.Name] = p.Phases
	}

	logger := log.WithComponent("ilm-move")
	w := stdout(cmd)

	for _, ilm := range explained {
		if !ilm.Managed {
			continue
		}

		if ilm.Phase == targetPhase {
			fmt.Fprintf(w, "index %q is already in phase %q, skipping\n", ilm.Index, ilm.Phase)
			continue
		}

		if !force && (ilm.Action != "complete" || ilm.Step != "complete") {
			fmt.Fprintf(w, `index %q is not in "complete" state (action: %q, step: %q) in its phase and --force is not given, skipping`+"\n", ilm.Index, ilm.Action, ilm.Step)
			continue
		}

		phases, ok := phasesByPolicy[ilm.Policy]
		if !ok {
			return fmt.Errorf("policy %q not found", ilm.Policy)
		}

		if !slices.Contains(phases, targetPhase) {
			fmt.Fprintf(w, "target phase %q is not defined in policy %q used by index %q\n", targetPhase, ilm.Policy, ilm.Index)
			continue
		}

		fmt.Fprintf(w, "%smove %q (phase: %q, action: %q, step: %q, policy: %q) to phase %q\n", dryRunPrefix, ilm.Index, ilm.Phase, ilm.Action, ilm.Step, ilm.Policy, targetPhase)
		if dryRun {
			continue
		}

		err := client.MoveToPhase(ctx, ilm.Index, es.StepKey{Phase: ilm.Phase, Action: ilm.Action, Step: ilm.Step}, targetPhase)
		if err != nil {
			return err
		}

		logger.Info().Str("index", ilm.Index).Str("from", ilm.Phase).Str("to", targetPhase).Msg("moved index")
	}

	return nil
}
