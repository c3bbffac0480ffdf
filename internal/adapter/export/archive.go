package export

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"go.ngs.io/ocean-regrid/internal/domain"
)

const (
	// ArchiveName is the download name of a batch bundle.
	ArchiveName = "copernicus_ocean_data.zip"
	// ArchiveContentType is the media type of a batch bundle.
	ArchiveContentType = "application/zip"
	// ReportName is the batch report entry inside the archive.
	ReportName = "report.json"
)

// BuildArchive bundles artifacts, in order, into a zip. A non-nil report is
// added as report.json. Names must already be unique, see UniqueNames.
func BuildArchive(artifacts []domain.OutputArtifact, report []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]bool, len(artifacts)+1)
	add := func(name string, content []byte) error {
		if seen[name] {
			return fmt.Errorf("duplicate archive entry %s", name)
		}
		seen[name] = true
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	}

	for _, a := range artifacts {
		if err := add(a.Name, a.Content); err != nil {
			return nil, err
		}
	}
	if report != nil {
		if err := add(ReportName, report); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// UniqueNames renames repeated names to base_N.ext. The first occurrence
// keeps its name, and a generated name never matches any input name.
func UniqueNames(names []string) []string {
	reserved := make(map[string]bool, len(names))
	for _, name := range names {
		reserved[name] = true
	}
	used := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if !used[name] {
			used[name] = true
			out[i] = name
			continue
		}
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
			if !reserved[candidate] && !used[candidate] {
				used[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}
