// Package usecase orchestrates the regrid pipeline: per-file decoding, then
// extract, normalize, lattice, interpolate and encode per selected variable,
// with every failure isolated to its (file, variable) unit.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/adapter/export"
	"go.ngs.io/ocean-regrid/internal/adapter/interp"
	"go.ngs.io/ocean-regrid/internal/domain"
	"go.ngs.io/ocean-regrid/internal/observability"
)

var (
	// ErrInvalidSelection wraps selection bounds or indices that fail validation.
	ErrInvalidSelection = errors.New("invalid selection")

	errCanceled = errors.New("batch canceled before this unit ran")
)

// FileInput is one uploaded file and the user's selection for it.
type FileInput struct {
	Name      string
	Data      []byte
	Selection *domain.Selection
}

// Options tunes a RegridUseCase.
type Options struct {
	Workers     int
	GridSpacing float64
	Previews    bool
	Clock       clockwork.Clock
}

// RegridUseCase runs regrid batches.
type RegridUseCase struct {
	decoders []dataset.Decoder
	encoder  export.Encoder
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewRegridUseCase creates a regrid use case.
func NewRegridUseCase(decoders []dataset.Decoder, encoder export.Encoder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *RegridUseCase {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.GridSpacing <= 0 {
		opts.GridSpacing = domain.GridSpacing
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &RegridUseCase{
		decoders: decoders,
		encoder:  encoder,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Execute processes every file. Unit failures are reported in the returned
// Report and never abort the batch; the error is non-nil only when ctx was
// canceled, in which case the partial report is still returned.
func (uc *RegridUseCase) Execute(ctx context.Context, files []FileInput) (*Report, error) {
	start := uc.opts.Clock.Now()
	report := &Report{BatchID: uuid.NewString(), StartedAt: start}
	col := NewCollector()

	uc.logger.Info("batch started", "batch_id", report.BatchID, "files", len(files), "workers", uc.opts.Workers)

	var g errgroup.Group
	g.SetLimit(uc.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			uc.processFile(ctx, i, f, col)
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes, report.Artifacts = col.Results()
	report.Duration = uc.opts.Clock.Since(start)
	uc.metrics.BatchDuration.Observe(report.Duration.Seconds())

	uc.logger.Info("batch finished",
		"batch_id", report.BatchID,
		"artifacts", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Duration,
	)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch %s interrupted: %w", report.BatchID, err)
	}
	return report, nil
}

func (uc *RegridUseCase) processFile(ctx context.Context, fileIdx int, f FileInput, col *Collector) {
	sel := f.Selection
	if sel.IsEmpty() {
		col.Skip(fileIdx, f.Name, domain.ErrNoSelection.Error())
		uc.metrics.Units.WithLabelValues(StatusSkipped, KindSelection).Inc()
		uc.logger.Warn("file skipped", "file", f.Name, "reason", domain.ErrNoSelection)
		return
	}
	if err := ctx.Err(); err != nil {
		uc.fail(col, fileIdx, -1, f.Name, "", fmt.Errorf("%w: %w", errCanceled, err))
		return
	}
	if err := sel.Validate(); err != nil {
		uc.fail(col, fileIdx, -1, f.Name, "", fmt.Errorf("%w: %w", ErrInvalidSelection, err))
		return
	}

	ds, err := dataset.Open(f.Name, f.Data, uc.decoders...)
	if err != nil {
		uc.metrics.FilesProcessed.WithLabelValues("none").Inc()
		uc.fail(col, fileIdx, -1, f.Name, "", err)
		return
	}
	defer func() {
		if err := ds.Close(); err != nil {
			uc.logger.Warn("failed to close dataset", "file", f.Name, "error", err)
		}
	}()
	uc.metrics.FilesProcessed.WithLabelValues(ds.Backend()).Inc()

	spatial := ds.SpatialVariables()
	if len(spatial) == 0 {
		uc.fail(col, fileIdx, -1, f.Name, "", &domain.SchemaError{File: f.Name, Err: domain.ErrNoSpatialVariables})
		return
	}

	for j, variable := range sel.Variables {
		if err := ctx.Err(); err != nil {
			uc.fail(col, fileIdx, j, f.Name, variable, fmt.Errorf("%w: %w", errCanceled, err))
			continue
		}
		unitStart := uc.opts.Clock.Now()
		artifacts, err := uc.processUnit(ds, spatial, f.Name, variable, sel)
		uc.metrics.UnitDuration.Observe(uc.opts.Clock.Since(unitStart).Seconds())
		if err != nil {
			uc.fail(col, fileIdx, j, f.Name, variable, err)
			continue
		}
		col.Success(fileIdx, j, artifacts...)
		uc.metrics.Units.WithLabelValues(StatusOK, "").Inc()
		uc.metrics.ArtifactsProduced.Inc()
	}
}

func (uc *RegridUseCase) fail(col *Collector, fileIdx, varIdx int, file, variable string, err error) {
	col.Failure(fileIdx, varIdx, file, variable, err)
	kind := Kind(err)
	uc.metrics.Units.WithLabelValues(StatusFailed, kind).Inc()
	uc.logger.Error("unit failed", "file", file, "variable", variable, "kind", kind, "error", err)
}

// processUnit runs the regrid chain for one variable of an open file.
func (uc *RegridUseCase) processUnit(ds dataset.Dataset, spatial []string, file, variable string, sel *domain.Selection) ([]domain.OutputArtifact, error) {
	if !slices.Contains(spatial, variable) {
		cause := domain.ErrNotSpatial
		if !hasVariable(ds, variable) {
			cause = domain.ErrVariableNotFound
		}
		return nil, &domain.SchemaError{File: file, Variable: variable, Err: cause}
	}

	field, err := ds.Field(variable, sel.Indices)
	if err != nil {
		if errors.Is(err, domain.ErrNotSpatial) || errors.Is(err, domain.ErrVariableNotFound) ||
			errors.Is(err, domain.ErrDimensionIndex) || errors.Is(err, domain.ErrUnsupportedType) {
			return nil, &domain.SchemaError{File: file, Variable: variable, Err: err}
		}
		return nil, &domain.DataError{File: file, Variable: variable, Err: err}
	}
	dataErr := func(err error) error {
		return &domain.DataError{File: file, Variable: variable, Err: err}
	}

	sub, err := field.Extract(sel.Box())
	if err != nil {
		return nil, dataErr(err)
	}
	points, box := domain.NormalizeLongitudes(sub.Points, sub.Box)

	lattice, err := domain.BuildLattice(box, uc.opts.GridSpacing)
	if err != nil {
		return nil, dataErr(err)
	}
	res, err := interp.Regrid(points, lattice)
	if err != nil {
		return nil, dataErr(err)
	}
	table, err := domain.NewResultTable(variable, lattice, res.Values)
	if err != nil {
		return nil, dataErr(err)
	}
	content, err := uc.encoder.Encode(table)
	if err != nil {
		return nil, dataErr(fmt.Errorf("failed to encode table: %w", err))
	}

	name := export.OutputName(file, variable, uc.encoder.Extension())
	artifacts := []domain.OutputArtifact{{Name: name, File: file, Variable: variable, Content: content}}
	uc.logger.Info("unit regridded",
		"file", file,
		"variable", variable,
		"source_points", len(points),
		"lattice_points", lattice.Len(),
		"triangles", res.Triangles,
		"linear", res.LinearFilled,
		"nearest", res.NearestFilled,
		"artifact", name,
	)

	if uc.opts.Previews {
		png, err := export.RenderPreview(table)
		if err != nil {
			uc.logger.Warn("preview skipped", "file", file, "variable", variable, "error", err)
		} else {
			artifacts = append(artifacts, domain.OutputArtifact{Name: export.PreviewName(name), File: file, Variable: variable, Content: png})
		}
	}
	return artifacts, nil
}

func hasVariable(ds dataset.Dataset, name string) bool {
	for _, v := range ds.Variables() {
		if v.Name == name {
			return true
		}
	}
	return false
}

// BatchStore keeps finished batch outputs for download.
type BatchStore interface {
	PutArchive(batchID string, data []byte) error
	PutArtifact(batchID, name string, data []byte) error
}

// Publish stores a batch archive built by Archive and each of the report's
// artifacts under the batch id.
func Publish(store BatchStore, report *Report, archive []byte) error {
	if err := store.PutArchive(report.BatchID, archive); err != nil {
		return fmt.Errorf("failed to store archive: %w", err)
	}
	for _, a := range report.Artifacts {
		if err := store.PutArtifact(report.BatchID, a.Name, a.Content); err != nil {
			return fmt.Errorf("failed to store %s: %w", a.Name, err)
		}
	}
	return nil
}

// Archive builds the zip of a report's artifacts plus report.json.
func Archive(report *Report) ([]byte, error) {
	summary, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return export.BuildArchive(report.Artifacts, summary)
}
