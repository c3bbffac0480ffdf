package export

import (
	"bytes"
	"image/png"
	"io"
	"math"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go.ngs.io/ocean-regrid/internal/domain"
)

func sampleTable() *domain.ResultTable {
	return &domain.ResultTable{
		Variable: "thetao",
		Rows: []domain.Row{
			{Lat: 1, Lon: 10, Value: 4.5},
			{Lat: 1, Lon: 10.125, Value: 5},
			{Lat: 0.875, Lon: 10, Value: 6.25},
			{Lat: 0.875, Lon: 10.125, Value: math.NaN()},
		},
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		file, variable, ext, want string
	}{
		{"cmems_mod_glo.nc", "thetao", "xlsx", "cmems_mod_glo_thetao_qgis.xlsx"},
		{"/tmp/upload/sea.NC", "so", "csv", "sea_so_qgis.csv"},
		{"no_extension", "zos", "xlsx", "no_extension_zos_qgis.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.file, tt.variable, tt.ext))
	}
}

func TestEncoderFor(t *testing.T) {
	enc, err := EncoderFor("")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", enc.Extension())

	enc, err = EncoderFor("CSV")
	require.NoError(t, err)
	assert.Equal(t, "csv", enc.Extension())

	_, err = EncoderFor("parquet")
	assert.Error(t, err)
}

func TestXLSXEncoder(t *testing.T) {
	data, err := XLSXEncoder{}.Encode(sampleTable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"lat", "lon", "value"}, rows[0])
	assert.Equal(t, []string{"1", "10", "4.5"}, rows[1])
	assert.Equal(t, []string{"0.875", "10.125"}, rows[4])
}

func TestCSVEncoder(t *testing.T) {
	data, err := CSVEncoder{}.Encode(sampleTable())
	require.NoError(t, err)

	want := "lat,lon,value\n1,10,4.5\n1,10.125,5\n0.875,10,6.25\n0.875,10.125,\n"
	assert.Equal(t, want, string(data))
}

func TestBuildArchive(t *testing.T) {
	artifacts := []domain.OutputArtifact{
		{Name: "a_sst_qgis.xlsx", Content: []byte("one")},
		{Name: "b_sst_qgis.xlsx", Content: []byte("two")},
	}
	data, err := BuildArchive(artifacts, []byte(`{"ok":true}`))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = content
	}
	assert.Equal(t, map[string][]byte{
		"a_sst_qgis.xlsx": []byte("one"),
		"b_sst_qgis.xlsx": []byte("two"),
		"report.json":     []byte(`{"ok":true}`),
	}, entries)
}

func TestBuildArchive_DuplicateName(t *testing.T) {
	_, err := BuildArchive([]domain.OutputArtifact{
		{Name: "a_sst_qgis.xlsx", Content: []byte("one")},
		{Name: "a_sst_qgis.xlsx", Content: []byte("two")},
	}, nil)
	assert.ErrorContains(t, err, "duplicate archive entry a_sst_qgis.xlsx")
}

func TestUniqueNames(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"no repeats", []string{"a.csv", "b.csv"}, []string{"a.csv", "b.csv"}},
		{"repeat", []string{"a.csv", "a.csv", "a.csv"}, []string{"a.csv", "a_2.csv", "a_3.csv"}},
		{"suffix already taken", []string{"x.xlsx", "x_2.xlsx", "x.xlsx"}, []string{"x.xlsx", "x_2.xlsx", "x_3.xlsx"}},
		{"taken later in the list", []string{"x.xlsx", "x.xlsx", "x_2.xlsx"}, []string{"x.xlsx", "x_3.xlsx", "x_2.xlsx"}},
		{"no extension", []string{"notes", "notes"}, []string{"notes", "notes_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueNames(tt.input))
		})
	}
}

func TestRenderPreview(t *testing.T) {
	data, err := RenderPreview(sampleTable())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 1024, img.Bounds().Dy())

	// North-west cell holds the minimum value.
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{68, 1, 84}, [3]uint32{r >> 8, g >> 8, b >> 8})
	// South-east cell is undefined.
	_, _, _, a := img.At(1000, 1000).RGBA()
	assert.Zero(t, a)
}

func TestRenderPreview_RejectsPartialTable(t *testing.T) {
	_, err := RenderPreview(&domain.ResultTable{Rows: []domain.Row{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 2}, {Lat: 0, Lon: 1}}})
	assert.Error(t, err)
}

func TestPreviewName(t *testing.T) {
	assert.Equal(t, "a_sst_qgis.png", PreviewName("a_sst_qgis.xlsx"))
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, xlsxContentType, ContentTypeOf("x.xlsx"))
	assert.Equal(t, "text/csv", ContentTypeOf("x.csv"))
	assert.Equal(t, "application/zip", ContentTypeOf(ArchiveName))
}
