package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/chargebook/internal/models"
)

// ListSites GET /sites
func (h *Handler) ListSites(c *gin.Context) {
	sites, err := h.sites.ListSites(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load sites")
		return
	}
	c.JSON(http.StatusOK, sites)
}

// GetSite GET /sites/:siteId
// Returns the location and its bookable EVSEs; the EVSE list is empty when it cannot be loaded.
func (h *Handler) GetSite(c *gin.Context) {
	id, ok := paramID(c, "siteId", "site")
	if !ok {
		return
	}

	site, err := h.sites.GetSite(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to load site")
		return
	}
	c.JSON(http.StatusOK, site)
}

// ListSiteEVSEs GET /sites/:siteId/evses
// Soft endpoint: failures yield an empty list.
func (h *Handler) ListSiteEVSEs(c *gin.Context) {
	id, ok := paramID(c, "siteId", "site")
	if !ok {
		return
	}

	ports, err := h.sites.BookablePorts(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to load site EVSEs", zap.Int64("location_id", id), zap.Error(err))
		ports = []models.Port{}
	}
	c.JSON(http.StatusOK, ports)
}

// SiteAvailability GET /sites/:siteId/availability?startAfter=&endBefore=
func (h *Handler) SiteAvailability(c *gin.Context) {
	id, ok := paramID(c, "siteId", "site")
	if !ok {
		return
	}

	startAfter, endBefore := c.Query("startAfter"), c.Query("endBefore")
	if startAfter == "" || endBefore == "" {
		badRequest(c, "startAfter and endBefore are required")
		return
	}

	raw, err := h.sites.Availability(c.Request.Context(), id, startAfter, endBefore)
	if err != nil {
		h.respondError(c, err, "Availability check failed")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
