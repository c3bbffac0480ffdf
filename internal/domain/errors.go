package domain

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by the typed errors below.
var (
	ErrEmptySubset        = errors.New("no valid data points inside the bounding box")
	ErrDegenerateSource   = errors.New("source points cannot be triangulated (need at least 3 non-collinear points)")
	ErrNoSpatialVariables = errors.New("no spatial variables detected")
	ErrNotSpatial         = errors.New("variable lacks latitude/longitude dimensions")
	ErrVariableNotFound   = errors.New("variable not found")
	ErrDimensionIndex     = errors.New("dimension index out of range")
	ErrNoSelection        = errors.New("no selections made")
	ErrUnsupportedType    = errors.New("variable type is not numeric")
)

// DecodeError reports that no backend could parse a file.
type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SchemaError reports a variable (or a whole file) without latitude and
// longitude dimensions.
type SchemaError struct {
	File     string
	Variable string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.File, e.Variable, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DataError reports a (file, variable) unit whose clipped data cannot be
// interpolated.
type DataError struct {
	File     string
	Variable string
	Err      error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.File, e.Variable, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
