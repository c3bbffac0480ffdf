package dataset

import (
	"fmt"
	"reflect"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// transpose flips a row-major rows×cols array to cols×rows.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}

// hyperslab copies [start, start+count) out of a row-major array of shape.
func hyperslab(flat []float64, shape, start, count []int) ([]float64, error) {
	if len(shape) != len(start) || len(shape) != len(count) {
		return nil, fmt.Errorf("rank mismatch: shape %v, start %v, count %v", shape, start, count)
	}
	total := 1
	for i := range shape {
		if start[i] < 0 || count[i] < 0 || start[i]+count[i] > shape[i] {
			return nil, fmt.Errorf("slab start %v count %v outside shape %v", start, count, shape)
		}
		total *= count[i]
	}
	if len(shape) == 0 {
		return append([]float64(nil), flat...), nil
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	if stride != len(flat) {
		return nil, fmt.Errorf("got %d values for shape %v", len(flat), shape)
	}

	out := make([]float64, 0, total)
	if total == 0 {
		return out, nil
	}
	pos := make([]int, len(shape))
	last := len(shape) - 1
	for {
		off := 0
		for i := range pos {
			off += (start[i] + pos[i]) * strides[i]
		}
		out = append(out, flat[off:off+count[last]]...)

		// Advance the odometer over all but the innermost dimension.
		k := last - 1
		for ; k >= 0; k-- {
			pos[k]++
			if pos[k] < count[k] {
				break
			}
			pos[k] = 0
		}
		if k < 0 {
			return out, nil
		}
	}
}

// flatten walks nested numeric slices (as produced by the pure-Go reader)
// and returns their values in row-major order with the nested shape.
func flatten(v interface{}) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	shape := nestedShape(rv)
	size := 1
	for _, n := range shape {
		size *= n
	}
	out := make([]float64, 0, size)
	out, err := appendValues(out, rv)
	if err != nil {
		return nil, nil, err
	}
	return out, shape, nil
}

func nestedShape(rv reflect.Value) []int {
	var shape []int
	for rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
	}
	return shape
}

func appendValues(out []float64, rv reflect.Value) ([]float64, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var err error
		for i := 0; i < rv.Len(); i++ {
			if out, err = appendValues(out, rv.Index(i)); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Interface:
		return appendValues(out, rv.Elem())
	}
	f, err := toFloat(rv)
	if err != nil {
		return nil, err
	}
	return append(out, f), nil
}

func toFloat(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, rv.Type())
	}
}

// scalarFloat reads an attribute value that is either a number or a
// non-empty numeric slice.
func scalarFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	f, err := toFloat(rv)
	return f, err == nil
}
