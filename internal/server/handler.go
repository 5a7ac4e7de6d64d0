package server

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"section8map/internal/dataset"
	"section8map/internal/logger"
	"section8map/internal/render"
	"section8map/internal/selection"
	"section8map/internal/types"
)

// TableProvider yields the full dataset. *dataset.Loader implements it.
type TableProvider interface {
	Load() (*dataset.Table, error)
}

// DashboardHandler serves the dashboard page and its JSON API.
type DashboardHandler struct {
	data     TableProvider
	renderer *render.Renderer
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(data TableProvider, renderer *render.Renderer) *DashboardHandler {
	return &DashboardHandler{
		data:     data,
		renderer: renderer,
	}
}

func (h *DashboardHandler) table(c *gin.Context) (*dataset.Table, bool) {
	t, err := h.data.Load()
	if err != nil {
		logger.Log.Errorf("Dataset unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dataset unavailable"})
		return nil, false
	}
	return t, true
}

// Page handles GET /
func (h *DashboardHandler) Page(c *gin.Context) {
	t, ok := h.table(c)
	if !ok {
		return
	}
	vm := h.renderer.Render(t, selection.FromQuery(c.Request.URL.Query()))
	c.HTML(http.StatusOK, templateName, vm)
}

// View handles GET /api/view
func (h *DashboardHandler) View(c *gin.Context) {
	t, ok := h.table(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.renderer.Render(t, selection.FromQuery(c.Request.URL.Query())))
}

// Regions handles GET /api/regions
func (h *DashboardHandler) Regions(c *gin.Context) {
	t, ok := h.table(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"regions": t.Distinct(func(p types.Property) string { return p.Region }),
	})
}

// Subregions handles GET /api/regions/:region/subregions
func (h *DashboardHandler) Subregions(c *gin.Context) {
	t, ok := h.table(c)
	if !ok {
		return
	}
	region := c.Param("region")
	if !slices.Contains(t.Distinct(func(p types.Property) string { return p.Region }), region) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown state: " + region})
		return
	}
	inRegion := h.renderer.Engine.Filter(t, region, nil, nil)
	c.JSON(http.StatusOK, gin.H{
		"region":     region,
		"subregions": inRegion.Distinct(func(p types.Property) string { return p.Subregion }),
	})
}

// DwellingTypes handles GET /api/dwelling-types
func (h *DashboardHandler) DwellingTypes(c *gin.Context) {
	t, ok := h.table(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dwellingTypes": t.Distinct(func(p types.Property) string { return p.HomeType }),
	})
}

// Health handles GET /healthz
func (h *DashboardHandler) Health(c *gin.Context) {
	t, err := h.data.Load()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "records": t.Len()})
}
