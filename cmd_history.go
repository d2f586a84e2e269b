package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/journal"
	"github.com/urfave/cli/v3"
)

// history lists the journaled reconciliation runs or, given a run id prefix,
// prints the full report of one run.
func history(_ context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	j, err := journal.Open(journalPath(cmd))
	if err != nil {
		return err
	}
	defer j.Close()

	w := stdout(cmd)

	if runID := cmd.Args().First(); runID != "" {
		entry, err := j.Get(runID)
		if err != nil {
			return err
		}

		if format == formatJSON {
			_, err := fmt.Fprintf(w, "%s\n", entry.Report)
			return err
		}
		return printHistory(w, []journal.Entry{*entry})
	}

	entries, err := j.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if format == formatJSON {
		if entries == nil {
			entries = []journal.Entry{}
		}
		return writeJSON(w, entries)
	}

	return printHistory(w, entries)
}

func printHistory(w io.Writer, entries []journal.Entry) error {
	data := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := styleOK.Render("ok")
		switch {
		case e.Failed > 0:
			status = styleError.Render("failed")
		case e.Cancelled:
			status = styleWarn.Render("cancelled")
		}

		data = append(data, []string{
			e.RunID,
			e.Timestamp.Local().Format(time.DateTime),
			e.Cluster,
			e.Operation,
			e.Target,
			e.Source,
			strconv.Itoa(e.Planned),
			fmt.Sprintf("%d/%d/%d", e.Succeeded, e.Failed, e.Skipped),
			e.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	return renderTable(w, []string{"Run ID", "Time", "Cluster", "Operation", "Target", "Source", "Planned", "Ok/Failed/Skipped", "Duration", "Status"}, data)
}
