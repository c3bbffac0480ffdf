// Package dataset decodes uploaded NetCDF bytes into gridded fields. Decoding
// goes through an ordered list of backends: libnetcdf first, then a pure-Go
// reader for files the C library rejects.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// Decoder turns raw file bytes into a Dataset.
type Decoder interface {
	Name() string
	Decode(name string, data []byte) (Dataset, error)
}

// Dataset is an opened file.
type Dataset interface {
	// Backend names the decoder that opened the file.
	Backend() string
	// Variables lists every variable with its dimensions and shape.
	Variables() []VariableInfo
	// SpatialVariables lists the data variables spanning both a latitude
	// and a longitude dimension, in file order.
	SpatialVariables() []string
	// Coordinates returns the latitude and longitude coordinate axes.
	Coordinates() (lat, lon []float64, err error)
	// Field reads one 2-D latitude/longitude slab of variable. Dimensions
	// other than latitude and longitude are fixed at indices (default 0).
	Field(variable string, indices map[string]int) (*domain.GriddedField, error)
	Close() error
}

// VariableInfo describes one variable of a file.
type VariableInfo struct {
	Name  string   `json:"name"`
	Dims  []string `json:"dims"`
	Shape []int    `json:"shape"`
}

// Spatial reports whether the variable spans latitude and longitude.
func (v VariableInfo) Spatial() bool {
	return v.latIndex() >= 0 && v.lonIndex() >= 0
}

func (v VariableInfo) latIndex() int {
	for i, d := range v.Dims {
		if IsLatDim(d) {
			return i
		}
	}
	return -1
}

func (v VariableInfo) lonIndex() int {
	for i, d := range v.Dims {
		if IsLonDim(d) {
			return i
		}
	}
	return -1
}

// IsLatDim reports whether a dimension name denotes latitude.
func IsLatDim(name string) bool {
	switch strings.ToLower(name) {
	case "lat", "latitude":
		return true
	}
	return false
}

// IsLonDim reports whether a dimension name denotes longitude.
func IsLonDim(name string) bool {
	switch strings.ToLower(name) {
	case "lon", "longitude":
		return true
	}
	return false
}

// Open tries each decoder in order and returns the first success. When all
// fail the causes are joined into a *domain.DecodeError.
func Open(name string, data []byte, decoders ...Decoder) (Dataset, error) {
	if len(decoders) == 0 {
		return nil, &domain.DecodeError{File: name, Err: errors.New("no decoders configured")}
	}
	errs := make([]error, 0, len(decoders))
	for _, d := range decoders {
		ds, err := d.Decode(name, data)
		if err == nil {
			return ds, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	return nil, &domain.DecodeError{File: name, Err: errors.Join(errs...)}
}

// DecodersByName resolves backend names in the given order.
func DecodersByName(names []string) ([]Decoder, error) {
	out := make([]Decoder, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case NetCDFBackend:
			out = append(out, NewNetCDFDecoder())
		case NativeBackend:
			out = append(out, NewNativeDecoder())
		default:
			return nil, fmt.Errorf("unknown dataset backend %q", n)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("at least one dataset backend is required")
	}
	return out, nil
}

// DefaultDecoders returns libnetcdf followed by the pure-Go fallback.
func DefaultDecoders() []Decoder {
	return []Decoder{NewNetCDFDecoder(), NewNativeDecoder()}
}

// packing is the CF missing-value and scaling metadata of a variable.
type packing struct {
	fill   []float64
	scale  float64
	offset float64
}

func identityPacking() packing {
	return packing{scale: 1}
}

func (p packing) apply(values []float64) {
	for i, v := range values {
		if math.IsNaN(v) || p.isFill(v) {
			values[i] = math.NaN()
			continue
		}
		values[i] = v*p.scale + p.offset
	}
}

func (p packing) isFill(v float64) bool {
	for _, f := range p.fill {
		if v == f {
			return true
		}
	}
	return false
}

// source is the backend-specific part of a Dataset.
type source interface {
	variables() ([]VariableInfo, error)
	// read returns the hyperslab [start, start+count) of a variable as
	// float64 in row-major order.
	read(name string, start, count []int) ([]float64, error)
	packing(name string) packing
	close() error
}

// handle implements Dataset over a source.
type handle struct {
	backend string
	src     source
	vars    []VariableInfo
	byName  map[string]VariableInfo
}

func newHandle(backend string, src source) (*handle, error) {
	vars, err := src.variables()
	if err != nil {
		return nil, err
	}
	h := &handle{backend: backend, src: src, vars: vars, byName: make(map[string]VariableInfo, len(vars))}
	for _, v := range vars {
		h.byName[v.Name] = v
	}
	return h, nil
}

func (h *handle) Backend() string { return h.backend }

func (h *handle) Variables() []VariableInfo { return h.vars }

func (h *handle) SpatialVariables() []string {
	var out []string
	for _, v := range h.vars {
		if v.Spatial() {
			out = append(out, v.Name)
		}
	}
	return out
}

func (h *handle) Coordinates() (lat, lon []float64, err error) {
	latName, lonName := "", ""
	for _, v := range h.vars {
		if len(v.Dims) != 1 {
			continue
		}
		if latName == "" && IsLatDim(v.Name) && IsLatDim(v.Dims[0]) {
			latName = v.Name
		}
		if lonName == "" && IsLonDim(v.Name) && IsLonDim(v.Dims[0]) {
			lonName = v.Name
		}
	}
	if latName == "" || lonName == "" {
		return nil, nil, fmt.Errorf("latitude/longitude coordinate variables: %w", domain.ErrNotSpatial)
	}
	if lat, err = h.axis(latName); err != nil {
		return nil, nil, err
	}
	if lon, err = h.axis(lonName); err != nil {
		return nil, nil, err
	}
	return lat, lon, nil
}

func (h *handle) axis(name string) ([]float64, error) {
	v, ok := h.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrVariableNotFound)
	}
	vals, err := h.src.read(name, []int{0}, []int{v.Shape[0]})
	if err != nil {
		return nil, fmt.Errorf("failed to read coordinate %s: %w", name, err)
	}
	p := h.src.packing(name)
	p.fill = nil
	p.apply(vals)
	return vals, nil
}

func (h *handle) Field(variable string, indices map[string]int) (*domain.GriddedField, error) {
	v, ok := h.byName[variable]
	if !ok {
		return nil, fmt.Errorf("%s: %w", variable, domain.ErrVariableNotFound)
	}
	latPos, lonPos := v.latIndex(), v.lonIndex()
	if latPos < 0 || lonPos < 0 {
		return nil, fmt.Errorf("%s has dims %v: %w", variable, v.Dims, domain.ErrNotSpatial)
	}

	start := make([]int, len(v.Dims))
	count := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		if i == latPos || i == lonPos {
			count[i] = v.Shape[i]
			continue
		}
		idx := indices[d]
		if idx < 0 || idx >= v.Shape[i] {
			return nil, fmt.Errorf("%s=%d (size %d): %w", d, idx, v.Shape[i], domain.ErrDimensionIndex)
		}
		start[i], count[i] = idx, 1
	}

	lat, lon, err := h.Coordinates()
	if err != nil {
		return nil, err
	}
	nLat, nLon := v.Shape[latPos], v.Shape[lonPos]
	if nLat != len(lat) || nLon != len(lon) {
		return nil, fmt.Errorf("%s is %d×%d but coordinates are %d×%d", variable, nLat, nLon, len(lat), len(lon))
	}

	values, err := h.src.read(variable, start, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}
	if lonPos < latPos {
		values = transpose(values, nLon, nLat)
	}
	h.src.packing(variable).apply(values)

	return &domain.GriddedField{Name: variable, Lat: lat, Lon: lon, Values: values}, nil
}

func (h *handle) Close() error { return h.src.close() }
