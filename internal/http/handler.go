package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/ocean-regrid/internal/adapter/export"
	"go.ngs.io/ocean-regrid/internal/cache"
	"go.ngs.io/ocean-regrid/internal/domain"
	"go.ngs.io/ocean-regrid/internal/usecase"
)

// BatchCache stores and serves finished batches.
type BatchCache interface {
	usecase.BatchStore
	Archive(batchID string) ([]byte, error)
	Artifact(batchID, name string) ([]byte, error)
	Stats() map[string]interface{}
}

// Handler handles HTTP requests for inspecting and regridding uploads.
type Handler struct {
	regridUC  *usecase.RegridUseCase
	inspectUC *usecase.InspectUseCase
	batches   BatchCache
	maxUpload int64
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(regridUC *usecase.RegridUseCase, inspectUC *usecase.InspectUseCase, batches BatchCache, maxUpload int64, logger *slog.Logger) *Handler {
	return &Handler{
		regridUC:  regridUC,
		inspectUC: inspectUC,
		batches:   batches,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// InspectResult is one entry of the inspect response. Exactly one of
// Summary and Error is set.
type InspectResult struct {
	Name    string               `json:"name"`
	Summary *usecase.FileSummary `json:"summary,omitempty"`
	Error   string               `json:"error,omitempty"`
	Kind    string               `json:"kind,omitempty"`
}

// Inspect handles POST /v1/inspect.
func (h *Handler) Inspect(c *gin.Context) {
	uploads, err := h.readUploads(c)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	results := make([]InspectResult, len(uploads))
	for i, u := range uploads {
		results[i].Name = u.name
		summary, err := h.inspectUC.Inspect(u.name, u.data)
		if err != nil {
			results[i].Error = err.Error()
			results[i].Kind = usecase.Kind(err)
			continue
		}
		results[i].Summary = summary
	}

	c.JSON(http.StatusOK, gin.H{
		"files": results,
		"count": len(results),
	})
}

// RegridResponse is the JSON body of a finished batch.
type RegridResponse struct {
	*usecase.Report
	ArchiveURL   string            `json:"archive_url,omitempty"`
	ArtifactURLs map[string]string `json:"artifact_urls,omitempty"`
	StorageError string            `json:"storage_error,omitempty"`
}

// Regrid handles POST /v1/regrid.
//
// The multipart form carries the uploads under "files" and a "selections"
// field holding a JSON object from file name to selection. Files without a
// selection are reported as skipped. With download=true the archive is
// returned directly instead of the JSON report.
func (h *Handler) Regrid(c *gin.Context) {
	uploads, err := h.readUploads(c)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	selections := map[string]*domain.Selection{}
	if raw := c.PostForm("selections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &selections); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid selections: %v", err)})
			return
		}
	}

	inputs := make([]usecase.FileInput, len(uploads))
	for i, u := range uploads {
		inputs[i] = usecase.FileInput{Name: u.name, Data: u.data, Selection: selections[u.name]}
	}

	report, err := h.regridUC.Execute(c.Request.Context(), inputs)
	if err != nil {
		h.logger.Warn("batch interrupted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	if report.Succeeded() == 0 {
		c.JSON(http.StatusUnprocessableEntity, RegridResponse{Report: report})
		return
	}

	archive, err := usecase.Archive(report)
	if err != nil {
		h.logger.Error("failed to build archive", "batch_id", report.BatchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build batch archive"})
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ArchiveName))
		c.Data(http.StatusOK, export.ArchiveContentType, archive)
		return
	}

	// The tables are already in the report; a batch that cannot be kept for
	// later download is still answered, just without links.
	if err := usecase.Publish(h.batches, report, archive); err != nil {
		h.logger.Warn("batch not stored for download", "batch_id", report.BatchID, "error", err)
		c.JSON(http.StatusOK, RegridResponse{Report: report, StorageError: err.Error()})
		return
	}

	resp := RegridResponse{
		Report:       report,
		ArchiveURL:   fmt.Sprintf("/v1/batches/%s/archive", report.BatchID),
		ArtifactURLs: make(map[string]string, len(report.Artifacts)),
	}
	for _, a := range report.Artifacts {
		resp.ArtifactURLs[a.Name] = fmt.Sprintf("/v1/batches/%s/artifacts/%s", report.BatchID, a.Name)
	}
	c.JSON(http.StatusOK, resp)
}

// GetArchive handles GET /v1/batches/:id/archive.
func (h *Handler) GetArchive(c *gin.Context) {
	data, err := h.batches.Archive(c.Param("id"))
	if err != nil {
		h.notFound(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ArchiveName))
	c.Data(http.StatusOK, export.ArchiveContentType, data)
}

// GetArtifact handles GET /v1/batches/:id/artifacts/:name.
func (h *Handler) GetArtifact(c *gin.Context) {
	name := c.Param("name")
	data, err := h.batches.Artifact(c.Param("id"), name)
	if err != nil {
		h.notFound(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentTypeOf(name), data)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"cache":  h.batches.Stats(),
	})
}

func (h *Handler) notFound(c *gin.Context, err error) {
	if errors.Is(err, cache.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch or artifact not found (it may have expired)"})
		return
	}
	h.logger.Error("failed to read batch cache", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type upload struct {
	name string
	data []byte
}

var (
	errNoFiles      = errors.New("no files uploaded (expected multipart field \"files\")")
	errUploadTooBig = errors.New("upload exceeds the size limit")
)

func (h *Handler) readUploads(c *gin.Context) ([]upload, error) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errUploadTooBig
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return nil, errNoFiles
	}

	uploads := make([]upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, upload{name: fh.Filename, data: data})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func statusOf(err error) int {
	if errors.Is(err, errUploadTooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
