package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/idmap"
)

func (s *Server) MapLegacyID(c *gin.Context) {
	var req struct {
		OldID       string `json:"old_id"`
		CanonicalID string `json:"canonical_id"`
		System      string `json:"system"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.idmapSvc.Map(c.Request.Context(), req.OldID, req.CanonicalID, req.System)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// LookupLegacyID resolves a legacy identifier to its canonical record.
// Old IDs are case-sensitive.
func (s *Server) LookupLegacyID(c *gin.Context) {
	resp, err := s.idmapSvc.Lookup(c.Request.Context(), c.Param("oldId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BatchImport(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var items []idmap.ImportItem
	if err := c.ShouldBindJSON(&items); err != nil || len(items) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.idmapSvc.BatchImport(c.Request.Context(), storeID, items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
