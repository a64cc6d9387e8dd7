package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/quicksand"
	"go.uber.org/zap"
)

// StatusCompleted is the fixed status string of a successful analysis.
const StatusCompleted = "análisis completado"

// FileField is the multipart form field carrying the artifact.
const FileField = "file"

// scanner is the scan adapter used by AnalyzeHandler.
// *engine.Scanner satisfies this interface.
type scanner interface {
	Scan(ctx context.Context, artifact []byte) (any, error)
}

// AnalyzeResponse is the body of a successful POST /api/quicksand-analyze.
type AnalyzeResponse struct {
	Status          string           `json:"status"`
	Filename        string           `json:"filename"`
	ContentType     string           `json:"content_type"`
	FileSize        int              `json:"file_size"`
	AnalysisResults quicksand.Result `json:"analysis_results"`
}

// AnalyzeHandler accepts uploaded artifacts and returns normalized verdicts.
type AnalyzeHandler struct {
	scanner  scanner
	logger   *zap.Logger
	maxBytes int64 // 0 = unlimited
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(s scanner, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{scanner: s, logger: logger}
}

// SetMaxArtifactBytes rejects uploaded files larger than n bytes with 413.
// Zero disables the check.
func (h *AnalyzeHandler) SetMaxArtifactBytes(n int64) {
	h.maxBytes = n
}

// Register mounts the analysis route on the given router group.
func (h *AnalyzeHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/quicksand-analyze", h.Analyze)
}

// Analyze handles POST /api/quicksand-analyze.
//
// The upload is read fully into memory, rejected with 400 when empty, scanned,
// and normalized. Engine failures map to 500 with the engine message in "detail".
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	fh, err := c.FormFile(FileField)
	if err != nil {
		if isBodyTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "El archivo excede el tamaño máximo permitido."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Falta el campo %q con el archivo a analizar.", FileField)})
		return
	}

	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "El archivo excede el tamaño máximo permitido."})
		return
	}

	h.logger.Info("file received",
		zap.String("filename", fh.Filename),
		zap.String("content_type", fh.Header.Get("Content-Type")),
		zap.String("request_id", c.GetString(requestIDKey)),
	)

	data, err := readUpload(fh)
	if err != nil {
		h.logger.Error("read upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error al leer el archivo: " + err.Error()})
		return
	}

	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "El archivo está vacío o no se proporcionó."})
		return
	}

	raw, err := h.scanner.Scan(c.Request.Context(), data)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyArtifact) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "El archivo está vacío o no se proporcionó."})
			return
		}
		h.logger.Error("quicksand analysis",
			zap.String("filename", fh.Filename),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error interno durante el análisis con QuickSand: " + err.Error()})
		return
	}

	result := quicksand.Normalize(raw)
	RecordVerdict(result.Risk)

	c.JSON(http.StatusOK, AnalyzeResponse{
		Status:          StatusCompleted,
		Filename:        fh.Filename,
		ContentType:     fh.Header.Get("Content-Type"),
		FileSize:        len(data),
		AnalysisResults: result,
	})
}

// readUpload opens and drains an uploaded file, always closing it.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
