package usecase

import (
	"encoding/json"
	"log/slog"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/cache"
	"go.ngs.io/ocean-regrid/internal/domain"
	"go.ngs.io/ocean-regrid/internal/observability"
)

// FileSummary describes an uploaded file so a caller can build a selection.
type FileSummary struct {
	Name             string                 `json:"name"`
	Backend          string                 `json:"backend"`
	Variables        []dataset.VariableInfo `json:"variables"`
	SpatialVariables []string               `json:"spatial_variables"`
	Extent           domain.Extent          `json:"extent"`
	// DefaultSelection covers the native extent with every spatial variable.
	DefaultSelection *domain.Selection `json:"default_selection"`
}

// SummaryCache stores encoded summaries by content key.
type SummaryCache interface {
	Inspect(key string) ([]byte, bool)
	PutInspect(key string, data []byte)
}

// InspectUseCase lists variables and the native extent of files.
type InspectUseCase struct {
	decoders []dataset.Decoder
	cache    SummaryCache
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewInspectUseCase creates an inspect use case. summaries may be nil.
func NewInspectUseCase(decoders []dataset.Decoder, summaries SummaryCache, logger *slog.Logger, metrics *observability.Metrics) *InspectUseCase {
	return &InspectUseCase{decoders: decoders, cache: summaries, logger: logger, metrics: metrics}
}

// Inspect decodes a file and summarizes it. A file without spatial
// variables yields a *domain.SchemaError.
func (uc *InspectUseCase) Inspect(name string, data []byte) (*FileSummary, error) {
	key := cache.ContentKey(data)
	if uc.cache != nil {
		if raw, ok := uc.cache.Inspect(key); ok {
			var s FileSummary
			if err := json.Unmarshal(raw, &s); err == nil {
				uc.metrics.InspectCache.WithLabelValues("hit").Inc()
				s.Name = name
				return &s, nil
			}
		}
		uc.metrics.InspectCache.WithLabelValues("miss").Inc()
	}

	s, err := uc.summarize(name, data)
	if err != nil {
		uc.logger.Warn("inspect failed", "file", name, "error", err)
		return nil, err
	}
	if uc.cache != nil {
		if raw, err := json.Marshal(s); err == nil {
			uc.cache.PutInspect(key, raw)
		}
	}
	return s, nil
}

func (uc *InspectUseCase) summarize(name string, data []byte) (*FileSummary, error) {
	ds, err := dataset.Open(name, data, uc.decoders...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	spatial := ds.SpatialVariables()
	if len(spatial) == 0 {
		return nil, &domain.SchemaError{File: name, Err: domain.ErrNoSpatialVariables}
	}
	lat, lon, err := ds.Coordinates()
	if err != nil {
		return nil, &domain.SchemaError{File: name, Err: err}
	}
	extent, err := domain.NativeExtent(lat, lon)
	if err != nil {
		return nil, &domain.SchemaError{File: name, Err: err}
	}

	return &FileSummary{
		Name:             name,
		Backend:          ds.Backend(),
		Variables:        ds.Variables(),
		SpatialVariables: spatial,
		Extent:           extent,
		DefaultSelection: domain.SelectionFor(extent, spatial...),
	}, nil
}
