package server

import (
	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/export"
)

func (s *Server) ExportJSON(c *gin.Context) {
	var opts export.Options
	if err := c.ShouldBindQuery(&opts); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Content-Disposition", `attachment; filename="medicines.ndjson"`)
	c.Status(200)
	if _, err := s.exportSvc.ExportJSON(c.Request.Context(), c.Writer, opts); err != nil {
		// headers already sent; the truncated stream is the signal
		_ = c.Error(err)
	}
}

func (s *Server) ExportCSV(c *gin.Context) {
	var opts export.Options
	if err := c.ShouldBindQuery(&opts); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="medicines.csv"`)
	c.Status(200)
	if _, err := s.exportSvc.ExportCSV(c.Request.Context(), c.Writer, opts); err != nil {
		_ = c.Error(err)
	}
}
