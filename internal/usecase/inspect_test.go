package usecase

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/cache"
	"go.ngs.io/ocean-regrid/internal/domain"
	"go.ngs.io/ocean-regrid/internal/observability"
)

func TestInspect_Summary(t *testing.T) {
	ds := oceanDataset()
	ds.lat = []float64{2, 1, 0}
	dec := &fakeDecoder{datasets: map[string]*fakeDataset{"ocean.nc": ds}}
	uc := NewInspectUseCase([]dataset.Decoder{dec}, nil, observability.DiscardLogger(), observability.NewMetricsForTesting())

	s, err := uc.Inspect("ocean.nc", []byte("ocean"))
	require.NoError(t, err)

	assert.Equal(t, "ocean.nc", s.Name)
	assert.Equal(t, "fake", s.Backend)
	assert.Equal(t, []string{"holes", "so", "thetao"}, s.SpatialVariables)
	assert.Equal(t, domain.Extent{LatMin: 0, LatMax: 2, LonMin: 0, LonMax: 2, LatDescending: true}, s.Extent)
	require.NotNil(t, s.DefaultSelection)
	assert.Equal(t, s.SpatialVariables, s.DefaultSelection.Variables)
	assert.Equal(t, 2.0, s.DefaultSelection.LatMax)
	assert.NoError(t, s.DefaultSelection.Validate())
}

func TestInspect_CachesByContent(t *testing.T) {
	mgr, err := cache.NewManager(context.Background(), cache.Config{BatchCacheSizeMB: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	dec := &fakeDecoder{datasets: map[string]*fakeDataset{"a.nc": oceanDataset()}}
	metrics := observability.NewMetricsForTesting()
	uc := NewInspectUseCase([]dataset.Decoder{dec}, mgr, observability.DiscardLogger(), metrics)

	first, err := uc.Inspect("a.nc", []byte("same bytes"))
	require.NoError(t, err)
	second, err := uc.Inspect("renamed.nc", []byte("same bytes"))
	require.NoError(t, err)

	assert.Equal(t, 1, dec.calls)
	assert.Equal(t, "renamed.nc", second.Name)
	assert.Equal(t, first.SpatialVariables, second.SpatialVariables)
	assert.Equal(t, first.Extent, second.Extent)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InspectCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InspectCache.WithLabelValues("miss")))
}

func TestInspect_Errors(t *testing.T) {
	flat := &fakeDataset{lat: axis(0, 1, 1), lon: axis(0, 1, 1)}
	dec := &fakeDecoder{datasets: map[string]*fakeDataset{"flat.nc": flat}}
	uc := NewInspectUseCase([]dataset.Decoder{dec}, nil, observability.DiscardLogger(), observability.NewMetricsForTesting())

	_, err := uc.Inspect("flat.nc", nil)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ErrorIs(t, err, domain.ErrNoSpatialVariables)

	_, err = uc.Inspect("junk.bin", nil)
	var decodeErr *domain.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, KindDecode, Kind(err))
}
