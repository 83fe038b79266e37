package httpserver

import "github.com/gin-gonic/gin"

func (h *handlers) stockCheck(c *gin.Context) {
	item, err := h.deps.Stock.Stock(c.Request.Context(), c.Query("sku"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, item)
}
