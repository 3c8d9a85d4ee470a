package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
)

func (s *Server) CreateMedicine(c *gin.Context) {
	var req meddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.medicineSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMedicine(c *gin.Context) {
	resp, err := s.medicineSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMedicines(c *gin.Context) {
	var req meddomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.medicineSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMedicine(c *gin.Context) {
	var patch meddomain.UpdatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.medicineSvc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DiscontinueMedicine retires a record; rows are never physically
// deleted.
func (s *Server) DiscontinueMedicine(c *gin.Context) {
	resp, err := s.governanceSvc.Discontinue(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RestoreMedicine(c *gin.Context) {
	resp, err := s.governanceSvc.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RollbackMedicine(c *gin.Context) {
	var req struct {
		Version int `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Version < 1 {
		AbortWithError(c, newValidationError("version", "invalid_version", "invalid version"))
		return
	}

	resp, err := s.medicineSvc.Rollback(c.Request.Context(), c.Param("id"), req.Version)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MedicineHistory(c *gin.Context) {
	resp, err := s.medicineSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BulkCreateMedicines(c *gin.Context) {
	var reqs []meddomain.CreateRequest
	if err := c.ShouldBindJSON(&reqs); err != nil || len(reqs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.medicineSvc.BulkCreate(c.Request.Context(), reqs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) BulkUpdateMedicines(c *gin.Context) {
	var items []meddomain.BulkUpdateItem
	if err := c.ShouldBindJSON(&items); err != nil || len(items) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.medicineSvc.BulkUpdate(c.Request.Context(), items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) AuditMedicine(c *gin.Context) {
	resp, err := s.governanceSvc.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AuditBatch(c *gin.Context) {
	var req struct {
		CanonicalIDs []string `json:"canonical_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.CanonicalIDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.governanceSvc.AuditBatch(c.Request.Context(), req.CanonicalIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IncrementUsage(c *gin.Context) {
	storeID, ok := requireStore(c)
	if !ok {
		return
	}

	resp, err := s.ingestionSvc.IncrementUsage(c.Request.Context(), storeID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
