package annotation

import (
	"errors"
	"sort"
)

// Status is the terminal state of one entity.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusNoContent       Status = "no_content"
	StatusParseError      Status = "parse_error"
	StatusValidationError Status = "validation_error"
	StatusCallError       Status = "call_error"
	StatusSkippedVolume   Status = "skipped_volume"
)

var (
	ErrNoContent  = errors.New("no content")
	ErrParse      = errors.New("response does not match expected shape")
	ErrValidation = errors.New("response missing required fields")
	ErrCall       = errors.New("llm call failed")
)

// StatusOf maps a parse/call error onto the result taxonomy.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrNoContent):
		return StatusNoContent
	case errors.Is(err, ErrValidation):
		return StatusValidationError
	case errors.Is(err, ErrParse):
		return StatusParseError
	default:
		return StatusCallError
	}
}

// Result is the terminal outcome for one entity. Payload always holds a
// well-formed value: the parsed data on success and the shape's empty or
// neutral fallback otherwise.
type Result[T any] struct {
	Seq      int
	Key      string
	Brand    string
	Status   Status
	Payload  T
	Reason   string
	Attempts int
	Raw      string
}

func (r Result[T]) OK() bool { return r.Status == StatusSuccess }

// Failed reports whether the result counts as an error in the manifest.
func (r Result[T]) Failed() bool {
	switch r.Status {
	case StatusParseError, StatusValidationError, StatusCallError:
		return true
	}
	return false
}

// Manifest is the run-level accounting of terminal results.
type Manifest struct {
	Total         int            `json:"total"`
	Succeeded     int            `json:"succeeded"`
	NoContent     int            `json:"no_content"`
	SkippedVolume int            `json:"skipped_volume"`
	Errored       int            `json:"errored"`
	ByStatus      map[Status]int `json:"by_status"`
}

// Add folds a status into the manifest.
func (m *Manifest) Add(s Status) {
	if m.ByStatus == nil {
		m.ByStatus = map[Status]int{}
	}
	m.Total++
	m.ByStatus[s]++
	switch s {
	case StatusSuccess:
		m.Succeeded++
	case StatusNoContent:
		m.NoContent++
	case StatusSkippedVolume:
		m.SkippedVolume++
	default:
		m.Errored++
	}
}

// Merge adds another manifest's counts.
func (m *Manifest) Merge(o Manifest) {
	for s, n := range o.ByStatus {
		for i := 0; i < n; i++ {
			m.Add(s)
		}
	}
}

// Summarize builds a manifest from results.
func Summarize[T any](results []Result[T]) Manifest {
	m := Manifest{ByStatus: map[Status]int{}}
	for _, r := range results {
		m.Add(r.Status)
	}
	return m
}

// Statuses returns the statuses present in the manifest in stable order.
func (m Manifest) Statuses() []Status {
	out := make([]Status, 0, len(m.ByStatus))
	for s := range m.ByStatus {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Failure records one entity that ended without a usable payload.
type Failure struct {
	Stage    string `json:"stage"`
	Key      string `json:"key"`
	Brand    string `json:"brand"`
	Status   Status `json:"status"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// FailuresOf collects the failed and skipped results of one stage.
func FailuresOf[T any](stage string, results []Result[T]) []Failure {
	var out []Failure
	for _, r := range results {
		if !r.Failed() && r.Status != StatusSkippedVolume {
			continue
		}
		out = append(out, Failure{
			Stage:    stage,
			Key:      r.Key,
			Brand:    r.Brand,
			Status:   r.Status,
			Reason:   r.Reason,
			Attempts: r.Attempts,
		})
	}
	return out
}
