package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/search"
)

func (s *Server) Search(c *gin.Context) {
	var req search.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.searchSvc.Search(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Autocomplete(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("q"))
	if prefix == "" {
		AbortWithError(c, newValidationError("q", "invalid_query", "query prefix required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.searchSvc.Autocomplete(c.Request.Context(), prefix, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SearchByComposition(c *gin.Context) {
	composition := strings.TrimSpace(c.Query("q"))
	if composition == "" {
		AbortWithError(c, newValidationError("q", "invalid_query", "composition required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.searchSvc.ByComposition(c.Request.Context(), composition, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SearchByManufacturer(c *gin.Context) {
	manufacturer := strings.TrimSpace(c.Query("q"))
	if manufacturer == "" {
		AbortWithError(c, newValidationError("q", "invalid_query", "manufacturer required"))
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := s.searchSvc.ByManufacturer(c.Request.Context(), manufacturer, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SearchStats(c *gin.Context) {
	resp, err := s.searchSvc.IndexStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RebuildIndex re-projects every canonical record into the search index.
// Long-running; the rebuild cursor survives interruption.
func (s *Server) RebuildIndex(c *gin.Context) {
	report, err := s.searchSync.Rebuild(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
