// Package main provides a command-line batch runner for the regrid pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"go.ngs.io/ocean-regrid/internal/adapter/dataset"
	"go.ngs.io/ocean-regrid/internal/adapter/export"
	"go.ngs.io/ocean-regrid/internal/config"
	"go.ngs.io/ocean-regrid/internal/domain"
	"go.ngs.io/ocean-regrid/internal/observability"
	"go.ngs.io/ocean-regrid/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	selPath := flag.String("selections", "", "YAML file mapping file names to selections")
	vars := flag.String("vars", "", "Comma-separated variables applied to every file")
	bbox := flag.String("bbox", "", "lat_min,lat_max,lon_min,lon_max applied with -vars")
	all := flag.Bool("all", false, "Select every spatial variable over each file's native extent")
	outPath := flag.String("out", export.ArchiveName, "Output zip archive")
	outDir := flag.String("dir", "", "Also write each table into this directory")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: regrid [flags] file.nc [file.nc ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	metrics := observability.NewMetrics()

	decoders, err := dataset.DecodersByName(cfg.Dataset.Backends)
	if err != nil {
		logger.Error("invalid dataset backends", "error", err)
		os.Exit(1)
	}
	encoder, err := export.EncoderFor(cfg.Output.Format)
	if err != nil {
		logger.Error("invalid output format", "error", err)
		os.Exit(1)
	}

	selections, err := loadSelections(*selPath, *vars, *bbox)
	if err != nil {
		logger.Error("invalid selections", "error", err)
		os.Exit(1)
	}

	inspectUC := usecase.NewInspectUseCase(decoders, nil, logger, metrics)
	inputs := make([]usecase.FileInput, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read input", "file", path, "error", err)
			os.Exit(1)
		}
		name := filepath.Base(path)
		sel := selections.forFile(name)
		if sel == nil && *all {
			summary, err := inspectUC.Inspect(name, data)
			if err != nil {
				logger.Warn("cannot build default selection", "file", name, "error", err)
			} else {
				sel = summary.DefaultSelection
			}
		}
		inputs = append(inputs, usecase.FileInput{Name: name, Data: data, Selection: sel})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	regridUC := usecase.NewRegridUseCase(decoders, encoder, usecase.Options{
		Workers:     cfg.Regrid.Workers,
		GridSpacing: cfg.Regrid.GridSpacing,
		Previews:    cfg.Output.Previews,
	}, logger, metrics)

	report, err := regridUC.Execute(ctx, inputs)
	if err != nil {
		logger.Error("batch interrupted", "error", err)
	}

	archive, err := usecase.Archive(report)
	if err != nil {
		logger.Error("failed to build archive", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, archive, 0o644); err != nil {
		logger.Error("failed to write archive", "path", *outPath, "error", err)
		os.Exit(1)
	}
	if *outDir != "" {
		if err := writeArtifacts(*outDir, report.Artifacts); err != nil {
			logger.Error("failed to write tables", "dir", *outDir, "error", err)
			os.Exit(1)
		}
	}

	for _, o := range report.Outcomes {
		switch o.Status {
		case usecase.StatusOK:
			fmt.Printf("✓ %s\n", o.Artifact)
		case usecase.StatusSkipped:
			fmt.Printf("- %s: %s\n", o.File, o.Message)
		default:
			fmt.Printf("✗ %s [%s]: %s\n", o.File, o.Kind, o.Message)
		}
	}
	fmt.Printf("%d table(s), %d failure(s) → %s\n", report.Succeeded(), report.Failed(), *outPath)

	if report.Succeeded() == 0 {
		os.Exit(1)
	}
}

// selectionSet resolves the selection of each file: the per-file YAML entry
// first, then the shared -vars/-bbox selection.
type selectionSet struct {
	byFile map[string]*domain.Selection
	shared *domain.Selection
}

func (s selectionSet) forFile(name string) *domain.Selection {
	if sel, ok := s.byFile[name]; ok {
		return sel
	}
	return s.shared
}

func loadSelections(path, vars, bbox string) (selectionSet, error) {
	set := selectionSet{byFile: map[string]*domain.Selection{}}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return set, err
		}
		if err := yaml.Unmarshal(data, &set.byFile); err != nil {
			return set, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if vars == "" {
		if bbox != "" {
			return set, fmt.Errorf("-bbox requires -vars")
		}
		return set, nil
	}
	bounds, err := parseBBox(bbox)
	if err != nil {
		return set, err
	}
	set.shared = &domain.Selection{
		Variables: strings.Split(vars, ","),
		LatMin:    bounds[0],
		LatMax:    bounds[1],
		LonMin:    bounds[2],
		LonMax:    bounds[3],
	}
	return set, nil
}

func parseBBox(s string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("-bbox needs lat_min,lat_max,lon_min,lon_max, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("invalid -bbox value %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func writeArtifacts(dir string, artifacts []domain.OutputArtifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Content, 0o644); err != nil {
			return err
		}
	}
	return nil
}
