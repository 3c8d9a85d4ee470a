package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
)

func (s *Server) Ingest(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var req ingdomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ingestionSvc.Ingest(c.Request.Context(), storeID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) BulkIngest(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	var reqs []ingdomain.IngestRequest
	if err := c.ShouldBindJSON(&reqs); err != nil || len(reqs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.ingestionSvc.BulkIngest(c.Request.Context(), storeID, reqs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) PromoteMedicine(c *gin.Context) {
	promoted, err := s.ingestionSvc.Promote(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"promoted": promoted}})
}

func (s *Server) ListPending(c *gin.Context) {
	var req ingdomain.PendingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ingestionSvc.ListPending(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPending(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid pending id"))
		return
	}

	resp, err := s.ingestionSvc.GetPending(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectPending(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid pending id"))
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ingestionSvc.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IngestStats(c *gin.Context) {
	resp, err := s.ingestionSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
