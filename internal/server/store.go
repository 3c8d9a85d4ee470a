package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	overlaydomain "github.com/medikart/masterdata/internal/overlay/domain"
)

func (s *Server) SetOverlay(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var req overlaydomain.SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.overlaySvc.Set(c.Request.Context(), storeID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOverlay(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	resp, err := s.overlaySvc.Get(c.Request.Context(), storeID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveOverlay(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	if err := s.overlaySvc.Remove(c.Request.Context(), storeID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": true}})
}

func (s *Server) GetMergedMedicine(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	resp, err := s.overlaySvc.GetMerged(c.Request.Context(), storeID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BulkMergedMedicines(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var req struct {
		CanonicalIDs []string `json:"canonical_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.CanonicalIDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.overlaySvc.BulkMerged(c.Request.Context(), storeID, req.CanonicalIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IncrementStock(c *gin.Context) {
	s.adjustStock(c, true)
}

func (s *Server) DecrementStock(c *gin.Context) {
	s.adjustStock(c, false)
}

func (s *Server) adjustStock(c *gin.Context, increment bool) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	canonicalID := strings.TrimSpace(c.Param("id"))
	var (
		resp *overlaydomain.StoreOverlay
		err  error
	)
	if increment {
		resp, err = s.overlaySvc.IncrementStock(c.Request.Context(), storeID, canonicalID, req.Quantity)
	} else {
		resp, err = s.overlaySvc.DecrementStock(c.Request.Context(), storeID, canonicalID, req.Quantity)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) LowStock(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.overlaySvc.LowStock(c.Request.Context(), storeID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
