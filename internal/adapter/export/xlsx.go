package export

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"go.ngs.io/ocean-regrid/internal/domain"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsxSheet       = "Sheet1"
	// xlsxMaxRows is the worksheet row limit, header included.
	xlsxMaxRows = 1_048_576
)

// XLSXEncoder writes a single-sheet workbook: header row then one row per
// lattice point.
type XLSXEncoder struct{}

// Extension implements Encoder.
func (XLSXEncoder) Extension() string { return FormatXLSX }

// Encode implements Encoder.
func (XLSXEncoder) Encode(t *domain.ResultTable) ([]byte, error) {
	if len(t.Rows)+1 > xlsxMaxRows {
		return nil, fmt.Errorf("%d rows exceed the xlsx sheet limit", len(t.Rows))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(domain.TableHeader))
	for i, h := range domain.TableHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]interface{}, 3)
	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row[0], row[1], row[2] = r.Lat, r.Lon, cellValue(r.Value)
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue leaves undefined values as empty cells.
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
