package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/SwissLife-OSS/escmd/internal/es"
	"github.com/docker/go-units"
	"github.com/urfave/cli/v3"
)

type ilmListEntry struct {
	Index  string        `json:"index"`
	Phase  string        `json:"phase"`
	Action string        `json:"action"`
	Step   string        `json:"step"`
	Policy string        `json:"policy"`
	Age    time.Duration `json:"age"`
	Size   int64         `json:"size"`
}

func ilmList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	phase := cmd.String("phase")
	ilmPolicy := cmd.String("ilm-policy")
	sortColumns := cmd.StringSlice("sort")
	minSizeStr := cmd.String("min-size")
	minAge := time.Duration(cmd.Int("min-age-days")) * day

	allowedSortColumns := []string{"age", "size"}
	for _, sortColumn := range sortColumns {
		if !slices.Contains(allowedSortColumns, sortColumn) {
			return fmt.Errorf("column %q is not allowed for sorting, use one of %v", sortColumn, allowedSortColumns)
		}
	}

	var minSize int64
	if minSizeStr != "" {
		minSize, err = units.FromHumanSize(minSizeStr)
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

	sizes := make(map[string]int64, len(indices))
	for _, index := range indices {
		sizes[index.Name] = index.StoreSize
	}

	explained, err := client.Explain(ctx, "_all", true)
	if err != nil {
		return err
	}

	entries := filterILM(explained, sizes, phase, ilmPolicy, minSize, minAge)
	sortILM(entries, phase == "", sortColumns)

	w := stdout(cmd)
	if format == formatJSON {
		return writeJSON(w, entries)
	}

	data := make([][]string, 0, len(entries))
	for _, item := range entries {
		data = append(data, []string{item.Index, item.Phase, item.Action, item.Step, item.Policy, formatDuration(item.Age), units.BytesSize(float64(item.Size))})
	}

	return renderTable(w, []string{
		"Index", "Phase", "Action", "Step", "Policy", "Age", "Size",
	}, data)
}

func filterILM(explained []es.ILMIndex, sizes map[string]int64, phase, policy string, minSize int64, minAge time.Duration) []ilmListEntry {
	entries := make([]ilmListEntry, 0, len(explained))

	for _, ilm := range explained {
		if !ilm.Managed {
			continue
		}

		if phase != "" && phase != ilm.Phase {
			continue
		}

		if policy != "" && policy != ilm.Policy {
			continue
		}

		size := sizes[ilm.Index]
		if size < minSize {
			continue
		}

		if ilm.Age < minAge {
			continue
		}

		entries = append(entries, ilmListEntry{Index: ilm.Index, Phase: ilm.Phase, Action: ilm.Action, Step: ilm.Step, Policy: ilm.Policy, Age: ilm.Age, Size: size})
	}

	return entries
}

// sortILM applies the sort criteria as less functions controlled by:
// - might the result contain multiple phases
// - provided sort columns, applied in order
func sortILM(entries []ilmListEntry, multiplePhases bool, sortColumns []string) {
	lessFuncs := []func(i, j int) (final, less bool){}
	if multiplePhases {
		lessFuncs = append(lessFuncs, func(i, j int) (final bool, less bool) {
			if entries[i].Phase != entries[j].Phase {
				return true, phaseLess(entries[i].Phase, entries[j].Phase)
			}

			return false, false
		})
	}

	for _, sortColumn := range sortColumns {
		switch sortColumn {
		case "age":
			lessFuncs = append(lessFuncs, func(i, j int) (final bool, less bool) {
				if entries[i].Age != entries[j].Age {
					return true, entries[i].Age > entries[j].Age
				}

				return false, false
			})

		case "size":
			lessFuncs = append(lessFuncs, func(i, j int) (final bool, less bool) {
				if entries[i].Size != entries[j].Size {
					return true, entries[i].Size > entries[j].Size
				}

				return false, false
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		for _, lessFunc := range lessFuncs {
			final, less := lessFunc(i, j)
			if final {
				return less
			}
		}

		return entries[i].Index < entries[j].Index
	})
}

const (
	day  = time.Minute * 60 * 24
	year = 365 * day
)

// formatDuration returns a given formatDuration rounded as formatted string
// with a focus on days and years.
// The rounding has the following logic:
// - If the formatDuration is less than a day, use the standard formatting from Go (hours, minutes and seconds, leading units, which are 0 are omitted).
// - If the formatDuration more than a year, prepend the number of years. A year is always considered to be 365 days, leap years are ignored.
// - Append the remainder of days, omit any more fine grained units.
func formatDuration(d time.Duration) string {
	if d < day {
		return d.String()
	}

	var b strings.Builder
	if d >= year {
		years := d / year
		fmt.Fprintf(&b, "%dy", years)
		d -= years * year
	}

	days := d / day
	fmt.Fprintf(&b, "%dd", days)

	return b.String()
}

var phaseOrder = map[string]int64{
	"hot":    0,
	"warm":   1,
	"cold":   2,
	"frozen": 3,
	"delete": 4,
}

// phaseLess returns if phase a has the lower order than phase b.
// Unknown phases are sorted at the end, same phases properly grouped together.
func phaseLess(a, b string) bool {
	return phaseRank(a) < phaseRank(b)
}

func phaseRank(phase string) int64 {
	if rank, ok := phaseOrder[phase]; ok {
		return rank
	}

	h := fnv.New32a()
	h.Write([]byte(phase))
	return 1<<32 + int64(h.Sum32())
}
