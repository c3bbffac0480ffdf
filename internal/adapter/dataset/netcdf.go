package dataset

import (
	"fmt"
	"os"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// NetCDFBackend is the libnetcdf decoder name.
const NetCDFBackend = "netcdf"

// libnetcdf is not thread-safe; every call into it holds this lock.
var libMu sync.Mutex

// NetCDFDecoder reads classic and NetCDF-4 files through libnetcdf.
type NetCDFDecoder struct {
	// TempDir receives the spilled upload; empty means os.TempDir().
	TempDir string
}

// NewNetCDFDecoder creates a libnetcdf decoder.
func NewNetCDFDecoder() *NetCDFDecoder {
	return &NetCDFDecoder{}
}

// Name implements Decoder.
func (d *NetCDFDecoder) Name() string { return NetCDFBackend }

// Decode spills data to a temporary file, since libnetcdf only opens paths,
// and opens it read-only. The file is removed on Close.
func (d *NetCDFDecoder) Decode(name string, data []byte) (Dataset, error) {
	tmp, err := os.CreateTemp(d.TempDir, "regrid-*.nc")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to spill %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to spill %s: %w", name, err)
	}

	libMu.Lock()
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	libMu.Unlock()
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}

	src := &netcdfSource{nc: nc, path: path}
	h, err := newHandle(NetCDFBackend, src)
	if err != nil {
		_ = src.close()
		return nil, err
	}
	return h, nil
}

type netcdfSource struct {
	nc   netcdf.Dataset
	path string
}

func (s *netcdfSource) variables() ([]VariableInfo, error) {
	libMu.Lock()
	defer libMu.Unlock()

	n, err := s.nc.NVars()
	if err != nil {
		return nil, fmt.Errorf("failed to count variables: %w", err)
	}
	out := make([]VariableInfo, 0, n)
	for i := 0; i < n; i++ {
		v := s.nc.VarN(i)
		name, err := v.Name()
		if err != nil {
			return nil, fmt.Errorf("failed to get variable name: %w", err)
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, fmt.Errorf("failed to get dimensions of %s: %w", name, err)
		}
		info := VariableInfo{Name: name, Dims: make([]string, len(dims)), Shape: make([]int, len(dims))}
		for j, dim := range dims {
			if info.Dims[j], err = dim.Name(); err != nil {
				return nil, fmt.Errorf("failed to get dimension name of %s: %w", name, err)
			}
			length, err := dim.Len()
			if err != nil {
				return nil, fmt.Errorf("failed to get dimension length of %s: %w", name, err)
			}
			info.Shape[j] = int(length)
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *netcdfSource) read(name string, start, count []int) ([]float64, error) {
	libMu.Lock()
	defer libMu.Unlock()

	v, err := s.nc.Var(name)
	if err != nil {
		return nil, err
	}
	st := make([]uint64, len(start))
	ct := make([]uint64, len(count))
	total := 1
	for i := range start {
		st[i], ct[i] = uint64(start[i]), uint64(count[i])
		total *= count[i]
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	out := make([]float64, total)
	switch t {
	case netcdf.DOUBLE:
		err = v.ReadFloat64Slice(out, st, ct)
	case netcdf.FLOAT:
		err = readSlice(v.ReadFloat32Slice, out, st, ct)
	case netcdf.BYTE:
		err = readSlice(v.ReadInt8Slice, out, st, ct)
	case netcdf.UBYTE:
		err = readSlice(v.ReadUint8Slice, out, st, ct)
	case netcdf.SHORT:
		err = readSlice(v.ReadInt16Slice, out, st, ct)
	case netcdf.USHORT:
		err = readSlice(v.ReadUint16Slice, out, st, ct)
	case netcdf.INT:
		err = readSlice(v.ReadInt32Slice, out, st, ct)
	case netcdf.UINT:
		err = readSlice(v.ReadUint32Slice, out, st, ct)
	case netcdf.INT64:
		err = readSlice(v.ReadInt64Slice, out, st, ct)
	case netcdf.UINT64:
		err = readSlice(v.ReadUint64Slice, out, st, ct)
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedType, t)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// readSlice reads a hyperslab of any numeric type into out.
func readSlice[T number](read func([]T, []uint64, []uint64) error, out []float64, start, count []uint64) error {
	tmp := make([]T, len(out))
	if err := read(tmp, start, count); err != nil {
		return err
	}
	for i, val := range tmp {
		out[i] = float64(val)
	}
	return nil
}

func (s *netcdfSource) packing(name string) packing {
	libMu.Lock()
	defer libMu.Unlock()

	p := identityPacking()
	v, err := s.nc.Var(name)
	if err != nil {
		return p
	}
	for _, attr := range []string{"_FillValue", "missing_value"} {
		if f, ok := attrFloat(v, attr); ok {
			p.fill = append(p.fill, f)
		}
	}
	if f, ok := attrFloat(v, "scale_factor"); ok {
		p.scale = f
	}
	if f, ok := attrFloat(v, "add_offset"); ok {
		p.offset = f
	}
	return p
}

func (s *netcdfSource) close() error {
	libMu.Lock()
	err := s.nc.Close()
	libMu.Unlock()
	if rmErr := os.Remove(s.path); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
		err = rmErr
	}
	return err
}

// attrFloat returns the first element of a numeric attribute.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		return firstOf(a.ReadFloat64s, n)
	case netcdf.FLOAT:
		return firstOf(a.ReadFloat32s, n)
	case netcdf.BYTE:
		return firstOf(a.ReadInt8s, n)
	case netcdf.UBYTE:
		return firstOf(a.ReadUint8s, n)
	case netcdf.SHORT:
		return firstOf(a.ReadInt16s, n)
	case netcdf.USHORT:
		return firstOf(a.ReadUint16s, n)
	case netcdf.INT:
		return firstOf(a.ReadInt32s, n)
	case netcdf.UINT:
		return firstOf(a.ReadUint32s, n)
	case netcdf.INT64:
		return firstOf(a.ReadInt64s, n)
	case netcdf.UINT64:
		return firstOf(a.ReadUint64s, n)
	}
	return 0, false
}

func firstOf[T number](read func([]T) error, n uint64) (float64, bool) {
	buf := make([]T, n)
	if err := read(buf); err != nil {
		return 0, false
	}
	return float64(buf[0]), true
}
