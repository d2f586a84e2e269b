package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func ilmStatus(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	mode, err := client.ILMStatus(ctx)
	if err != nil {
		return err
	}

	policies, err := client.Policies(ctx)
	if err != nil {
		return err
	}

	explained, err := client.Explain(ctx, "_all", false)
	if err != nil {
		return err
	}

	errs, err := client.Errors(ctx, "_all")
	if err != nil {
		return err
	}

	managed := 0
	phases := map[string]int{}
	for _, index := range explained {
		if !index.Managed {
			continue
		}
		managed++
		phases[index.Phase]++
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, map[string]any{
			"operation_mode":    mode,
			"policies":          len(policies),
			"managed_indices":   managed,
			"unmanaged_indices": len(explained) - managed,
			"error_indices":     len(errs),
			"phases":            phases,
		})
	}

	modeStyle := styleOK
	if mode != "RUNNING" {
		modeStyle = styleWarn
	}
	fmt.Fprintf(w, "ILM is %s\n", modeStyle.Render(mode))

	data := [][]string{
		{"Policies", fmt.Sprint(len(policies))},
		{"Managed indices", fmt.Sprint(managed)},
		{"Unmanaged indices", fmt.Sprint(len(explained) - managed)},
		{"Indices in error", fmt.Sprint(len(errs))},
	}
	for phase, count := range mapOrderedByKey(phases) {
		data = append(data, []string{"Phase " + phase, fmt.Sprint(count)})
	}

	return renderTable(w, []string{"Metric", "Value"}, data)
}

func ilmPolicies(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	policies, err := client.Policies(ctx)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, policies)
	}

	data := make([][]string, 0, len(policies))
	for _, p := range policies {
		data = append(data, []string{p.Name, strings.Join(p.Phases, ", ")})
	}

	return renderTable(w, []string{"Policy", "Phases"}, data)
}

func ilmExplain(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	index := cmd.Args().First()
	if index == "" {
		return fmt.Errorf("index is required")
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	explained, err := client.Explain(ctx, index, false)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, explained)
	}

	data := make([][]string, 0, len(explained))
	for _, e := range explained {
		if !e.Managed {
			data = append(data, []string{e.Index, styleMuted.Render("unmanaged"), "", "", "", ""})
			continue
		}
		data = append(data, []string{e.Index, e.Policy, e.Phase, e.Action, e.Step, formatDuration(e.Age)})
	}

	return renderTable(w, []string{"Index", "Policy", "Phase", "Action", "Step", "Age"}, data)
}

func ilmErrors(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	pattern := cmd.Args().First()
	if pattern == "" {
		pattern = "_all"
	}

	client, _, err := connect(ctx, cmd)
	if err != nil {
		return err
	}

	errs, err := client.Errors(ctx, pattern)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, errs)
	}

	if len(errs) == 0 {
		fmt.Fprintln(w, styleOK.Render("No ILM errors"))
		return nil
	}

	data := make([][]string, 0, len(errs))
	for _, e := range errs {
		data = append(data, []string{e.Index, e.Policy, e.Phase, e.Action, e.FailedStep, styleError.Render(e.Type), e.Reason})
	}

	return renderTable(w, []string{"Index", "Policy", "Phase", "Action", "Failed step", "Error", "Reason"}, data)
}
