package server

import (
	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/storecontext"
	"github.com/medikart/masterdata/pkg/db/pagination"
)

// requireStore resolves the calling store from the request context and
// aborts with a validation error when the X-Store-ID header was absent.
func requireStore(c *gin.Context) (string, bool) {
	storeID, ok := storecontext.StoreIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, newValidationError("store_id", "store_id_required", "X-Store-ID header required"))
		return "", false
	}
	return storeID, true
}

func bindPage(c *gin.Context) (pagination.Page, bool) {
	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return pagination.Page{}, false
	}
	return page, true
}
