package httpserver

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vsbridge/internal/domain"
	"vsbridge/internal/service/order"
)

func (h *handlers) orderCreate(c *gin.Context) {
	var req struct {
		PaymentMethod *paymentRequest `json:"paymentMethod"`
		Email         string          `json:"email"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	store, cart, found := h.cart(c)
	if !found {
		return
	}
	in := order.SubmitInput{Email: strings.TrimSpace(req.Email)}
	if req.PaymentMethod != nil {
		in.PaymentMethod = strings.TrimSpace(req.PaymentMethod.Method)
		in.AdditionalData = req.PaymentMethod.AdditionalData
	}
	result, err := h.deps.Orders.Submit(c.Request.Context(), store, cart, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handlers) orderHistory(c *gin.Context) {
	customerID, found := h.customerID(c)
	if !found {
		return
	}
	page, err := queryInt(c, "page")
	if err != nil {
		fail(c, err)
		return
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		fail(c, err)
		return
	}
	history, err := h.deps.Orders.History(c.Request.Context(), customerID, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, history)
}

// queryInt parses an optional integer query parameter. Missing means zero.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validationf("%s must be a number", name)
	}
	return v, nil
}
