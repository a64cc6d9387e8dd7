package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readinessProbe reports whether the analysis engine can take work.
// *engine.Scanner satisfies this interface.
type readinessProbe interface {
	Ready(ctx context.Context) error
}

// InfoHandler serves the static service description and the health probes.
type InfoHandler struct {
	version string
	probe   readinessProbe // nil = always ready
}

// NewInfoHandler creates a new InfoHandler reporting the given build version.
func NewInfoHandler(version string, probe readinessProbe) *InfoHandler {
	return &InfoHandler{version: version, probe: probe}
}

// Register mounts the info and health routes on the router.
func (h *InfoHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/healthz", h.Health)
	r.GET("/readyz", h.Ready)
}

// Root handles GET /.
func (h *InfoHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "QuickSand analysis API está funcionando. Haz POST a /api/quicksand-analyze con un archivo en el campo \"file\".",
		"version": h.version,
	})
}

// Health handles GET /healthz. It reports liveness only.
func (h *InfoHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /readyz. It probes the engine and answers 503 when it
// cannot analyse artifacts.
func (h *InfoHandler) Ready(c *gin.Context) {
	if h.probe == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.probe.Ready(ctx); err != nil {
		RecordHealthCheck(false)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
		return
	}
	RecordHealthCheck(true)
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
