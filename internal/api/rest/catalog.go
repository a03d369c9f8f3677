package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// GET /api/v1/catalog
func (s *Server) getCatalog(c *gin.Context) {
	snap := s.lm.Catalog().Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("CATALOG_503", "Catalog not loaded", nil))
		return
	}

	addons := snap.Selectable()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version(),
		"loaded_at": snap.LoadedAt(),
		"addons":    addons,
		"count":     len(addons),
	})
}

// GET /api/v1/catalog/limits
func (s *Server) getLimits(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Sessions().Limits())
}

// GET /api/v1/catalog/addons/:addon
func (s *Server) getAddon(c *gin.Context) {
	snap := s.lm.Catalog().Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("CATALOG_503", "Catalog not loaded", nil))
		return
	}

	def, ok := snap.Lookup(c.Param("addon"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("CATALOG_404", "Addon not found", c.Param("addon")))
		return
	}
	c.JSON(http.StatusOK, def)
}

// POST /api/v1/catalog/reload
func (s *Server) reloadCatalog(c *gin.Context) {
	snap, err := s.lm.ReloadCatalog()
	if err != nil {
		s.logger.Error("Catalog reload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CATALOG_500", "Failed to reload catalog", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":  snap.Version(),
		"addons":   snap.Len(),
		"warnings": snap.Warnings(),
	})
}

// GET /api/v1/catalog/loads
func (s *Server) listCatalogLoads(c *gin.Context) {
	db := s.lm.Storage()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("CATALOG_503", "Catalog load history requires database storage", nil))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	loads, err := db.ListCatalogLoads(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("CATALOG_500", "Failed to list catalog loads", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"loads": loads,
		"count": len(loads),
	})
}
