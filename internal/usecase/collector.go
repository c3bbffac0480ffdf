package usecase

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"time"

	"go.ngs.io/ocean-regrid/internal/adapter/export"
	"go.ngs.io/ocean-regrid/internal/domain"
)

// Outcome statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Error kinds reported on failed outcomes.
const (
	KindDecode    = "decode"
	KindSchema    = "schema"
	KindData      = "data"
	KindSelection = "selection"
	KindCanceled  = "canceled"
	KindInternal  = "internal"
)

// Outcome is the result of one (file, variable) unit, or of a whole file
// when it failed before any variable was processed (Variable empty).
type Outcome struct {
	File     string `json:"file"`
	Variable string `json:"variable,omitempty"`
	Status   string `json:"status"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message,omitempty"`
	Artifact string `json:"artifact,omitempty"`

	fileIdx, varIdx int
}

// Report summarizes a batch run.
type Report struct {
	BatchID   string                  `json:"batch_id"`
	StartedAt time.Time               `json:"started_at"`
	Duration  time.Duration           `json:"duration_ns"`
	Artifacts []domain.OutputArtifact `json:"artifacts"`
	Outcomes  []Outcome               `json:"outcomes"`
}

// Succeeded returns the number of units that produced a table.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusOK {
			n++
		}
	}
	return n
}

// Failed returns the number of failed units.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Collector gathers outcomes and artifacts from concurrent units and
// returns them in (file, variable) order.
type Collector struct {
	mu        sync.Mutex
	outcomes  []Outcome
	artifacts []collected
}

type collected struct {
	fileIdx, varIdx, seq int
	artifact             domain.OutputArtifact
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Success records a produced artifact.
func (c *Collector) Success(fileIdx, varIdx int, artifacts ...domain.OutputArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(artifacts) == 0 {
		return
	}
	first := artifacts[0]
	c.outcomes = append(c.outcomes, Outcome{
		File: first.File, Variable: first.Variable, Status: StatusOK, Artifact: first.Name,
		fileIdx: fileIdx, varIdx: varIdx,
	})
	for i, a := range artifacts {
		c.artifacts = append(c.artifacts, collected{fileIdx: fileIdx, varIdx: varIdx, seq: i, artifact: a})
	}
}

// Failure records a failed unit. varIdx is -1 for file-level failures.
func (c *Collector) Failure(fileIdx, varIdx int, file, variable string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, Outcome{
		File: file, Variable: variable, Status: StatusFailed, Kind: Kind(err), Message: err.Error(),
		fileIdx: fileIdx, varIdx: varIdx,
	})
}

// Skip records a file without a selection.
func (c *Collector) Skip(fileIdx int, file, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, Outcome{
		File: file, Status: StatusSkipped, Kind: KindSelection, Message: reason,
		fileIdx: fileIdx, varIdx: -1,
	})
}

// Results returns outcomes and artifacts sorted by file then variable
// index, independent of completion order. Artifact names repeated across
// files are made unique here, and outcomes point at the renamed tables.
func (c *Collector) Results() ([]Outcome, []domain.OutputArtifact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcomes := slices.Clone(c.outcomes)
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		if n := cmp.Compare(a.fileIdx, b.fileIdx); n != 0 {
			return n
		}
		return cmp.Compare(a.varIdx, b.varIdx)
	})

	items := slices.Clone(c.artifacts)
	slices.SortStableFunc(items, func(a, b collected) int {
		if n := cmp.Compare(a.fileIdx, b.fileIdx); n != 0 {
			return n
		}
		if n := cmp.Compare(a.varIdx, b.varIdx); n != 0 {
			return n
		}
		return cmp.Compare(a.seq, b.seq)
	})
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.artifact.Name
	}
	names = export.UniqueNames(names)

	type unit struct{ fileIdx, varIdx int }
	primary := make(map[unit]string)
	artifacts := make([]domain.OutputArtifact, len(items))
	for i, it := range items {
		artifacts[i] = it.artifact
		artifacts[i].Name = names[i]
		if it.seq == 0 {
			primary[unit{it.fileIdx, it.varIdx}] = names[i]
		}
	}
	for i, o := range outcomes {
		if o.Status == StatusOK {
			outcomes[i].Artifact = primary[unit{o.fileIdx, o.varIdx}]
		}
	}
	return outcomes, artifacts
}

// Kind classifies an error into a reported kind.
func Kind(err error) string {
	var (
		decodeErr *domain.DecodeError
		schemaErr *domain.SchemaError
		dataErr   *domain.DataError
	)
	switch {
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &dataErr):
		return KindData
	case errors.Is(err, domain.ErrNoSelection), errors.Is(err, ErrInvalidSelection):
		return KindSelection
	case errors.Is(err, errCanceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
