package dataset

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// NativeBackend is the pure-Go decoder name.
const NativeBackend = "native"

// NativeDecoder reads CDF and HDF5-based NetCDF straight from memory.
type NativeDecoder struct{}

// NewNativeDecoder creates a pure-Go decoder.
func NewNativeDecoder() *NativeDecoder {
	return &NativeDecoder{}
}

// Name implements Decoder.
func (d *NativeDecoder) Name() string { return NativeBackend }

// memFile adapts an in-memory upload to api.ReadSeekerCloser.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

// Decode implements Decoder.
func (d *NativeDecoder) Decode(_ string, data []byte) (ds Dataset, err error) {
	defer recoverDecode(&err)

	g, err := netcdf.New(memFile{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF data: %w", err)
	}
	src := &nativeSource{group: g, cache: make(map[string]nativeVar)}
	h, err := newHandle(NativeBackend, src)
	if err != nil {
		g.Close()
		return nil, err
	}
	return h, nil
}

// recoverDecode turns a reader panic on malformed input into an error.
func recoverDecode(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed file: %v", r)
	}
}

// dimensioner is implemented by groups that expose dimension lengths.
type dimensioner interface {
	GetDimension(name string) (uint64, bool)
}

type nativeVar struct {
	values []float64
	shape  []int
}

type nativeSource struct {
	group api.Group

	mu    sync.Mutex
	cache map[string]nativeVar
}

func (s *nativeSource) variables() (out []VariableInfo, err error) {
	defer recoverDecode(&err)

	names := s.group.ListVariables()
	out = make([]VariableInfo, 0, len(names))
	for _, name := range names {
		vg, err := s.group.GetVarGetter(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get variable %s: %w", name, err)
		}
		dims := vg.Dimensions()
		shape, ok := s.shapeFromDims(vg, dims)
		if !ok {
			nv, err := s.load(name)
			if err != nil {
				// Non-numeric variables (strings, compounds) are not listed.
				continue
			}
			shape = nv.shape
		}
		if len(shape) != len(dims) {
			continue
		}
		out = append(out, VariableInfo{Name: name, Dims: dims, Shape: shape})
	}
	return out, nil
}

// shapeFromDims resolves the shape without reading data. The first
// dimension may be unlimited, so its length comes from the getter.
func (s *nativeSource) shapeFromDims(vg api.VarGetter, dims []string) ([]int, bool) {
	dg, ok := s.group.(dimensioner)
	if !ok {
		return nil, false
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		if i == 0 {
			shape[i] = int(vg.Len())
			continue
		}
		n, ok := dg.GetDimension(d)
		if !ok || n == 0 {
			return nil, false
		}
		shape[i] = int(n)
	}
	return shape, true
}

func (s *nativeSource) load(name string) (nativeVar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nv, ok := s.cache[name]; ok {
		return nv, nil
	}
	v, err := s.group.GetVariable(name)
	if err != nil {
		return nativeVar{}, err
	}
	values, shape, err := flatten(v.Values)
	if err != nil {
		return nativeVar{}, fmt.Errorf("variable %s: %w", name, err)
	}
	nv := nativeVar{values: values, shape: shape}
	s.cache[name] = nv
	return nv, nil
}

func (s *nativeSource) read(name string, start, count []int) (out []float64, err error) {
	defer recoverDecode(&err)

	// Fixing the leading dimension only needs that slice of records.
	if len(start) > 1 && count[0] == 1 {
		vg, err := s.group.GetVarGetter(name)
		if err != nil {
			return nil, err
		}
		raw, err := vg.GetSlice(int64(start[0]), int64(start[0]+1))
		if err != nil {
			return nil, fmt.Errorf("failed to slice %s: %w", name, err)
		}
		values, shape, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		rest := append([]int{0}, start[1:]...)
		return hyperslab(values, shape, rest, count)
	}

	nv, err := s.load(name)
	if err != nil {
		return nil, err
	}
	return hyperslab(nv.values, nv.shape, start, count)
}

func (s *nativeSource) packing(name string) packing {
	p := identityPacking()
	vg, err := s.group.GetVarGetter(name)
	if err != nil {
		return p
	}
	attrs := vg.Attributes()
	if attrs == nil {
		return p
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		if raw, ok := attrs.Get(key); ok {
			if f, ok := scalarFloat(raw); ok {
				p.fill = append(p.fill, f)
			}
		}
	}
	if raw, ok := attrs.Get("scale_factor"); ok {
		if f, ok := scalarFloat(raw); ok {
			p.scale = f
		}
	}
	if raw, ok := attrs.Get("add_offset"); ok {
		if f, ok := scalarFloat(raw); ok {
			p.offset = f
		}
	}
	return p
}

func (s *nativeSource) close() error {
	s.group.Close()
	return nil
}
