package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/config"
	"github.com/SwissLife-OSS/escmd/internal/journal"
	"github.com/SwissLife-OSS/escmd/internal/log"
	"github.com/SwissLife-OSS/escmd/internal/metrics"
	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// reconcileFlags are shared by all commands running a reconciliation.
func reconcileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "indices",
			Usage: "Comma separated list of index names, instead of a pattern",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: `JSON file with index names, either a list or {"indices": [...]}`,
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be changed without changing anything",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Do not ask for confirmation",
		},
		&cli.IntFlag{
			Name:  "max-concurrent",
			Usage: "Maximum number of concurrent settings updates",
			Value: reconcile.DefaultMaxConcurrent,
		},
		&cli.BoolFlag{
			Name:  "continue-on-error",
			Usage: "Keep updating the remaining indices after an update failed",
		},
		&cli.StringFlag{
			Name:  "save-json",
			Usage: "Write the run report as JSON to the given file",
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write run metrics in Prometheus text format to the given file",
		},
	}
}

// sourceFromFlags builds the candidate source from the positional pattern and
// the --indices and --file flags.
func sourceFromFlags(cmd *cli.Command, pattern string) reconcile.Source {
	return reconcile.Source{
		Pattern: pattern,
		Indices: splitList(cmd.String("indices")),
		File:    cmd.String("file"),
	}
}

// runReconcile plans op for src and target, asks for confirmation, executes
// the plan and reports the result. Runs with failed updates end with exit
// code 2.
func runReconcile[V comparable](ctx context.Context, cmd *cli.Command, cluster *config.Cluster, op *reconcile.Operation[V], src reconcile.Source, target V) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	w := stdout(cmd)

	plan, err := op.Plan(ctx, src, target)
	if err != nil {
		return err
	}

	report := op.NewReport(src, plan, dryRun)

	logger := log.WithRunID(report.RunID).With().
		Str("operation", op.Name).
		Str("cluster", cluster.Name).
		Logger()
	logger.Info().
		Str("source", report.Source).
		Str("target", op.FormatValue(target)).
		Int("candidates", plan.TotalCandidates).
		Int("to_update", len(plan.ToUpdate)).
		Int("to_skip", len(plan.ToSkip)).
		Bool("dry_run", dryRun).
		Msg("plan built")

	if format == formatTable {
		if err := printPlan(w, op, plan, dryRun); err != nil {
			return err
		}
	}

	if !dryRun && len(plan.ToUpdate) > 1 && !cmd.Bool("yes") {
		if format == formatJSON {
			return fmt.Errorf("refusing to update %d indices without confirmation, use --yes", len(plan.ToUpdate))
		}

		ok, err := confirm(stdin(cmd), w, confirmPrompt(op.Name, op.FormatValue(target), len(plan.ToUpdate)))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info().Msg("aborted by user")
			fmt.Fprintln(w, "Aborted, nothing was changed.")
			return nil
		}
	}

	maxConcurrent := cmd.Int("max-concurrent")
	if !cmd.IsSet("max-concurrent") && cluster.MaxConcurrent > 0 {
		maxConcurrent = cluster.MaxConcurrent
	}

	recorder := metrics.NewRecorder()
	observer := progressObserver(cmd.Root().ErrWriter, format, len(plan.ToUpdate), recorder.Observer(cluster.Name, op.Name))

	report.Results = op.Execute(ctx, plan, reconcile.ExecOptions[V]{
		MaxConcurrent:   maxConcurrent,
		DryRun:          dryRun,
		ContinueOnError: cmd.Bool("continue-on-error"),
		Observer:        observer,
		Log:             &logger,
	})

	res := report.Results
	logger.Info().
		Int("successful", len(res.Successful)).
		Int("failed", len(res.Failed)).
		Int("skipped", len(res.Skipped)).
		Int("total_processed", res.TotalProcessed).
		Bool("cancelled", res.Cancelled).
		Dur("duration", res.Duration()).
		Msg("run finished")

	switch format {
	case formatJSON:
		err = writeJSON(w, report)
	default:
		err = printResult(w, report)
	}
	if err != nil {
		return err
	}

	if path := cmd.String("save-json"); path != "" {
		if err := report.Save(path); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("report saved")
	}

	if !dryRun {
		recordJournal(cmd, cluster.Name, report, op.FormatValue, &logger)
	}

	if path := cmd.String("metrics-textfile"); path != "" {
		metrics.RecordRun(recorder, cluster.Name, report)
		if err := recorder.WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if report.Failed() {
		return cli.Exit(fmt.Sprintf("%d of %d index updates failed", len(res.Failed), len(plan.ToUpdate)), 2)
	}
	if res.Cancelled {
		return cli.Exit("run was cancelled before all indices were processed", 2)
	}

	return nil
}

// recordJournal stores the run in the local history. A journal that cannot
// be written does not fail the run, the cluster has been changed already.
func recordJournal[V comparable](cmd *cli.Command, cluster string, report *reconcile.Report[V], format func(V) string, logger *zerolog.Logger) {
	entry, err := journal.NewEntry(cluster, report, format)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to record run in journal")
		return
	}

	j, err := journal.Open(journalPath(cmd))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to record run in journal")
		return
	}
	defer j.Close()

	if err := j.Record(entry); err != nil {
		logger.Warn().Err(err).Msg("failed to record run in journal")
		return
	}

	logger.Debug().Str("journal", journalPath(cmd)).Msg("run recorded")
}

// progressObserver reports every completed item to next. In table mode a
// progress line is written to w. Failures are logged by the executor.
func progressObserver(w io.Writer, format string, total int, next reconcile.Observer) reconcile.Observer {
	var done atomic.Int64

	return reconcile.ObserverFunc(func(o reconcile.Outcome) {
		n := done.Add(1)

		if format == formatTable {
			fmt.Fprintf(w, "[%d/%d] %s %s\n", n, total, o.Index, statusStyle(o.Status).Render(string(o.Status)))
		}

		next.ItemCompleted(o)
	})
}

func statusStyle(status reconcile.Status) lipgloss.Style {
	switch status {
	case reconcile.StatusSuccess:
		return styleOK
	case reconcile.StatusWouldUpdate, reconcile.StatusSkipped:
		return styleWarn
	case reconcile.StatusFailed:
		return styleError
	default:
		return styleMuted
	}
}

// confirmPrompt words the confirmation question for a run of op updating n
// indices towards target.
func confirmPrompt(op, target string, n int) string {
	var action string
	switch op {
	case reconcile.OpRemovePolicy:
		action = fmt.Sprintf("Remove ILM policy from %d indices.", n)
	case reconcile.OpSetPolicy:
		action = fmt.Sprintf("Set ILM policy %s on %d indices.", target, n)
	case reconcile.OpSetReplicas:
		action = fmt.Sprintf("Set %s replicas on %d indices.", target, n)
	default:
		action = fmt.Sprintf("Set %s on %d indices.", target, n)
	}
	return action + " Continue? [y/N] "
}

// confirm asks a yes/no question on r, everything but y or yes is a no.
func confirm(r io.Reader, w io.Writer, prompt string) (bool, error) {
	fmt.Fprint(w, prompt)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func printPlan[V comparable](w io.Writer, op *reconcile.Operation[V], plan reconcile.Plan[V], dryRun bool) error {
	title := "Plan"
	if dryRun {
		title = "Plan (DRY RUN)"
	}

	fmt.Fprintf(w, "%s: %s, target %s, %d candidates, %s to update, %s to skip\n",
		styleMuted.Render(title),
		op.Name,
		op.FormatValue(plan.Target),
		plan.TotalCandidates,
		styleOK.Render(strconv.Itoa(len(plan.ToUpdate))),
		styleWarn.Render(strconv.Itoa(len(plan.ToSkip))),
	)

	if plan.TotalCandidates == 0 {
		return nil
	}

	data := make([][]string, 0, plan.TotalCandidates)
	for _, u := range plan.ToUpdate {
		data = append(data, []string{u.Index.Name, "update", op.FormatValue(u.Current) + " -> " + op.FormatValue(u.Target)})
	}
	for _, s := range plan.ToSkip {
		data = append(data, []string{s.Index.Name, "skip", s.Reason})
	}

	return renderTable(w, []string{"Index", "Decision", "Detail"}, data)
}

func printResult[V comparable](w io.Writer, report *reconcile.Report[V]) error {
	res := report.Results

	fmt.Fprintf(w, "%s: %s successful, %s failed, %s skipped, %d processed in %s\n",
		styleMuted.Render("Result"),
		styleOK.Render(strconv.Itoa(len(res.Successful))),
		styleError.Render(strconv.Itoa(len(res.Failed))),
		styleWarn.Render(strconv.Itoa(len(res.Skipped))),
		res.TotalProcessed,
		res.Duration().Round(time.Millisecond),
	)
	if res.Cancelled {
		fmt.Fprintln(w, styleError.Render("Stopped after the first failure, remaining indices were not attempted."))
	}
	fmt.Fprintf(w, "Run ID: %s\n", report.RunID)

	if res.TotalProcessed == 0 {
		return nil
	}

	data := make([][]string, 0, res.TotalProcessed)
	for _, bucket := range [][]reconcile.Outcome{res.Failed, res.Successful, res.Skipped} {
		for _, o := range bucket {
			data = append(data, []string{o.Index, string(o.Status), o.Detail})
		}
	}

	return renderTable(w, []string{"Index", "Status", "Detail"}, data)
}
