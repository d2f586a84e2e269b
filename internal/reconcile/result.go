package reconcile

import (
	"encoding/json"
	"math"
	"time"
)

// Status of a single index in a run.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
	StatusWouldUpdate Status = "would_update"
)

// Outcome is the result of executing, or simulating, the update of one index.
type Outcome struct {
	Index  string `json:"index_name"`
	Status Status `json:"status"`
	Detail string `json:"detail"`
}

// Result aggregates the outcomes of one execution phase. Items that were
// never dispatched because execution stopped after a failure do not appear
// in any bucket; Cancelled is set in that case.
type Result struct {
	Successful     []Outcome
	Failed         []Outcome
	Skipped        []Outcome
	TotalProcessed int
	Cancelled      bool
	StartTime      time.Time
	EndTime        time.Time
}

// Duration is the wall clock time of the execution phase.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

type resultJSON struct {
	Successful     []Outcome `json:"successful"`
	Failed         []Outcome `json:"failed"`
	Skipped        []Outcome `json:"skipped"`
	TotalProcessed int       `json:"total_processed"`
	Cancelled      bool      `json:"cancelled,omitempty"`
	StartTime      float64   `json:"start_time"`
	EndTime        float64   `json:"end_time"`
	Duration       float64   `json:"duration"`
}

// MarshalJSON renders the timestamps as float seconds since the epoch and the
// duration as float seconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Successful:     nonNil(r.Successful),
		Failed:         nonNil(r.Failed),
		Skipped:        nonNil(r.Skipped),
		TotalProcessed: r.TotalProcessed,
		Cancelled:      r.Cancelled,
		StartTime:      unixSeconds(r.StartTime),
		EndTime:        unixSeconds(r.EndTime),
		Duration:       r.Duration().Seconds(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Result{
		Successful:     raw.Successful,
		Failed:         raw.Failed,
		Skipped:        raw.Skipped,
		TotalProcessed: raw.TotalProcessed,
		Cancelled:      raw.Cancelled,
		StartTime:      fromUnixSeconds(raw.StartTime),
		EndTime:        fromUnixSeconds(raw.EndTime),
	}
	return nil
}

func nonNil(o []Outcome) []Outcome {
	if o == nil {
		return []Outcome{}
	}
	return o
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

func fromUnixSeconds(s float64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Observer is notified once per completed item, in completion order.
type Observer interface {
	ItemCompleted(o Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(o Outcome)

// ItemCompleted calls f(o).
func (f ObserverFunc) ItemCompleted(o Outcome) {
	f(o)
}

// aggregator folds outcomes into a Result as they arrive. It is only used
// from the goroutine that collects outcomes, so it needs no locking.
type aggregator struct {
	result   *Result
	observer Observer
}

func newAggregator(observer Observer) *aggregator {
	return &aggregator{
		result: &Result{
			Successful: []Outcome{},
			Failed:     []Outcome{},
			Skipped:    []Outcome{},
			StartTime:  time.Now(),
		},
		observer: observer,
	}
}

func (a *aggregator) add(o Outcome) {
	switch o.Status {
	case StatusSuccess, StatusWouldUpdate:
		a.result.Successful = append(a.result.Successful, o)
	case StatusFailed:
		a.result.Failed = append(a.result.Failed, o)
	case StatusSkipped:
		a.result.Skipped = append(a.result.Skipped, o)
	}
	a.result.TotalProcessed++

	if a.observer != nil {
		a.observer.ItemCompleted(o)
	}
}

func (a *aggregator) finish() *Result {
	a.result.EndTime = time.Now()
	return a.result
}
