package export

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path"
	"strings"

	"github.com/fogleman/gg"

	"go.ngs.io/ocean-regrid/internal/domain"
)

// maxPreviewSide caps the longer edge of a preview in pixels.
const maxPreviewSide = 1024

// viridis control points (matplotlib viridis).
var viridis = []color.RGBA{
	{68, 1, 84, 255},
	{72, 35, 116, 255},
	{64, 67, 135, 255},
	{52, 94, 141, 255},
	{41, 120, 142, 255},
	{32, 144, 140, 255},
	{34, 167, 132, 255},
	{68, 190, 112, 255},
	{121, 209, 81, 255},
	{189, 222, 38, 255},
	{253, 231, 37, 255},
}

// colorAt maps t in [0, 1] onto the viridis ramp.
func colorAt(t float64) color.RGBA {
	if t <= 0 || math.IsNaN(t) {
		return viridis[0]
	}
	if t >= 1 {
		return viridis[len(viridis)-1]
	}
	idx := t * float64(len(viridis)-1)
	lo := int(idx)
	frac := idx - float64(lo)
	c1, c2 := viridis[lo], viridis[lo+1]
	return color.RGBA{
		R: uint8(float64(c1.R) + frac*(float64(c2.R)-float64(c1.R))),
		G: uint8(float64(c1.G) + frac*(float64(c2.G)-float64(c1.G))),
		B: uint8(float64(c1.B) + frac*(float64(c2.B)-float64(c1.B))),
		A: 255,
	}
}

// PreviewName returns the PNG name that accompanies an artifact.
func PreviewName(artifact string) string {
	return strings.TrimSuffix(artifact, path.Ext(artifact)) + ".png"
}

// RenderPreview draws a table as a north-up raster colored by value.
// Undefined values are left transparent.
func RenderPreview(t *domain.ResultTable) ([]byte, error) {
	nLat, nLon := t.Shape()
	if nLat == 0 || nLon == 0 || nLat*nLon != len(t.Rows) {
		return nil, fmt.Errorf("table of %d rows is not a full lattice", len(t.Rows))
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, r := range t.Rows {
		if math.IsNaN(r.Value) {
			continue
		}
		minV = math.Min(minV, r.Value)
		maxV = math.Max(maxV, r.Value)
	}
	span := maxV - minV
	if span <= 0 || math.IsInf(span, 0) {
		span = 1
	}

	cell := math.Max(1, math.Floor(float64(maxPreviewSide)/float64(max(nLat, nLon))))
	width := int(math.Min(float64(nLon)*cell, maxPreviewSide))
	height := int(math.Min(float64(nLat)*cell, maxPreviewSide))
	cw := float64(width) / float64(nLon)
	ch := float64(height) / float64(nLat)

	dc := gg.NewContext(width, height)
	// Rows are sorted north to south, west to east: raster order.
	for k, r := range t.Rows {
		if math.IsNaN(r.Value) {
			continue
		}
		i, j := k/nLon, k%nLon
		dc.SetColor(colorAt((r.Value - minV) / span))
		dc.DrawRectangle(float64(j)*cw, float64(i)*ch, math.Ceil(cw), math.Ceil(ch))
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
