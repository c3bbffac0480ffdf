// Package export serializes result tables (xlsx, csv), renders quick-look
// previews and bundles artifacts into a zip archive.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Encoder serializes a result table.
type Encoder interface {
	Extension() string
	Encode(t *domain.ResultTable) ([]byte, error)
}

// EncoderFor returns the encoder of a format name.
func EncoderFor(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatXLSX, "":
		return XLSXEncoder{}, nil
	case FormatCSV:
		return CSVEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// OutputName derives an artifact name from the source file and variable:
// "<base>_<variable>_qgis.<ext>", with a trailing ".nc" removed from base.
func OutputName(file, variable, ext string) string {
	base := filepath.Base(file)
	if strings.HasSuffix(strings.ToLower(base), ".nc") {
		base = base[:len(base)-len(".nc")]
	}
	return fmt.Sprintf("%s_%s_qgis.%s", base, variable, ext)
}

// ContentTypeOf maps an artifact name to its media type.
func ContentTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return xlsxContentType
	case ".csv":
		return csvContentType
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	case ".zip":
		return ArchiveContentType
	default:
		return "application/octet-stream"
	}
}
