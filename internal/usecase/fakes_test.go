package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/domain"
)

// fakeDataset serves in-memory fields.
type fakeDataset struct {
	lat, lon []float64
	fields   map[string]func(lat, lon float64) float64
	extra    map[string][]string // variable -> dims, for non-spatial variables
	broken   map[string]error    // Field errors by variable
	closed   *bool
}

func (d *fakeDataset) Backend() string { return "fake" }

func (d *fakeDataset) Variables() []dataset.VariableInfo {
	var out []dataset.VariableInfo
	out = append(out,
		dataset.VariableInfo{Name: "lat", Dims: []string{"lat"}, Shape: []int{len(d.lat)}},
		dataset.VariableInfo{Name: "lon", Dims: []string{"lon"}, Shape: []int{len(d.lon)}},
	)
	for _, name := range sortedKeys(d.fields) {
		out = append(out, dataset.VariableInfo{Name: name, Dims: []string{"lat", "lon"}, Shape: []int{len(d.lat), len(d.lon)}})
	}
	for _, name := range sortedKeys(d.extra) {
		out = append(out, dataset.VariableInfo{Name: name, Dims: d.extra[name], Shape: []int{1}})
	}
	return out
}

func (d *fakeDataset) SpatialVariables() []string {
	return sortedKeys(d.fields)
}

func (d *fakeDataset) Coordinates() ([]float64, []float64, error) {
	return d.lat, d.lon, nil
}

func (d *fakeDataset) Field(variable string, _ map[string]int) (*domain.GriddedField, error) {
	if err, ok := d.broken[variable]; ok {
		return nil, err
	}
	fn, ok := d.fields[variable]
	if !ok {
		return nil, fmt.Errorf("%s: %w", variable, domain.ErrVariableNotFound)
	}
	f := &domain.GriddedField{Name: variable, Lat: d.lat, Lon: d.lon}
	for _, la := range d.lat {
		for _, lo := range d.lon {
			f.Values = append(f.Values, fn(la, lo))
		}
	}
	return f, nil
}

func (d *fakeDataset) Close() error {
	if d.closed != nil {
		*d.closed = true
	}
	return nil
}

// fakeDecoder returns datasets by file name.
type fakeDecoder struct {
	mu       sync.Mutex
	datasets map[string]*fakeDataset
	calls    int
}

func (d *fakeDecoder) Name() string { return "fake" }

func (d *fakeDecoder) Decode(name string, _ []byte) (dataset.Dataset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	ds, ok := d.datasets[name]
	if !ok {
		return nil, errors.New("not a dataset")
	}
	return ds, nil
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = content
	}
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func axis(from, to, step float64) []float64 {
	var out []float64
	for v := from; v <= to+1e-9; v += step {
		out = append(out, v)
	}
	return out
}

// memStore records published batches.
type memStore struct {
	archives  map[string][]byte
	artifacts map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{archives: map[string][]byte{}, artifacts: map[string][]byte{}}
}

func (s *memStore) PutArchive(batchID string, data []byte) error {
	s.archives[batchID] = data
	return nil
}

func (s *memStore) PutArtifact(batchID, name string, data []byte) error {
	s.artifacts[batchID+"/"+name] = data
	return nil
}
