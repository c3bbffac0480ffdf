package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"go.ngs.io/ocean-regrid/internal/domain"
)

const csvContentType = "text/csv"

// CSVEncoder writes the table as comma-separated text with a header row.
type CSVEncoder struct{}

// Extension implements Encoder.
func (CSVEncoder) Extension() string { return FormatCSV }

// Encode implements Encoder.
func (CSVEncoder) Encode(t *domain.ResultTable) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(domain.TableHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, 3)
	for _, r := range t.Rows {
		record[0] = strconv.FormatFloat(r.Lat, 'f', -1, 64)
		record[1] = strconv.FormatFloat(r.Lon, 'f', -1, 64)
		record[2] = ""
		if !math.IsNaN(r.Value) {
			record[2] = strconv.FormatFloat(r.Value, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
