package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsbridge/internal/config"
	"vsbridge/internal/domain"
	"vsbridge/internal/engine"
	"vsbridge/internal/logging"
	"vsbridge/internal/metrics"
	cartrepo "vsbridge/internal/repository/cart"
	customerrepo "vsbridge/internal/repository/customer"
	orderrepo "vsbridge/internal/repository/order"
	productrepo "vsbridge/internal/repository/product"
	storerepo "vsbridge/internal/repository/store"
	tokenrepo "vsbridge/internal/repository/token"
	"vsbridge/internal/service/checkout"
	customersvc "vsbridge/internal/service/customer"
	"vsbridge/internal/service/order"
	productsvc "vsbridge/internal/service/product"
	"vsbridge/internal/service/quote"
	"vsbridge/internal/service/token"
	"vsbridge/internal/service/totals"
)

type recordingNotifier struct {
	mu     sync.Mutex
	placed []string
	resets []string
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.IncrementID)
	return nil
}

func (n *recordingNotifier) SubmissionFailed(context.Context, *domain.Cart, string) error {
	return nil
}

func (n *recordingNotifier) PasswordReset(_ context.Context, _ *domain.Customer, tok string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, tok)
	return nil
}

type testServer struct {
	router   *gin.Engine
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	stores := storerepo.NewMemory()
	store, err := stores.Ensure(ctx, domain.Store{Code: domain.DefaultStoreCode, Name: "Default", BaseCurrency: "USD"})
	require.NoError(t, err)
	require.NotEmpty(t, store.ID)

	products := productrepo.NewMemory()
	_, err = products.Upsert(ctx, domain.Product{SKU: "A1", Name: "Tee", Type: domain.ProductTypeSimple, PriceCents: 2000, ManageStock: true, StockQty: 10, InStock: true})
	require.NoError(t, err)

	rules, err := config.LoadStoreRules("")
	require.NoError(t, err)
	eng := engine.New(rules, products)
	agg := totals.New(eng)
	tokens := token.New("test-secret", 0)
	carts := cartrepo.NewMemory()
	customers := customerrepo.NewMemory()
	notifier := &recordingNotifier{}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	router, err := buildRouter(logging.Discard(), Deps{
		Stores:   stores,
		Tokens:   tokens,
		Carts:    quote.NewResolver(carts, tokens, nil),
		Checkout: checkout.New(carts, eng, agg, m, nil),
		Orders:   order.New(order.Deps{
			Carts:     carts,
			Orders:    orderrepo.NewMemory(carts, products),
			Customers: customers,
			Engine:    eng,
			Totals:    agg,
			Notifier:  notifier,
			Metrics:   m,
		}),
		Customers:      customersvc.New(customers, tokenrepo.NewMemory(), tokens, notifier, nil),
		Stock:          productsvc.New(products),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	require.NoError(t, err)
	return &testServer{router: router, notifier: notifier}
}

type response struct {
	Status  int               `json:"status"`
	Result  json.RawMessage   `json:"result"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(target, "/vsbridge") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body=%s", rec.Body.String())
		assert.Equal(t, rec.Code, resp.Status)
	}
	return rec, resp
}

func resultString(t *testing.T, r response) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(r.Result, &s))
	return s
}

func (s *testServer) newCart(t *testing.T, accessToken string) string {
	t.Helper()
	target := "/vsbridge/cart/create"
	if accessToken != "" {
		target += "?token=" + accessToken
	}
	rec, resp := s.do(t, http.MethodPost, target, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return resultString(t, resp)
}

func (s *testServer) signup(t *testing.T, email, password string) string {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/vsbridge/user/create",
		`{"customer":{"email":"`+email+`","firstname":"Jane","lastname":"Doe"},"password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/user/login", `{"username":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, resp.Meta["refreshToken"])
	return resultString(t, resp)
}

const shippingInformation = `{"addressInformation":{
	"shippingAddress":{"firstname":"Jane","lastname":"Doe","email":"jane@example.com","street":["1 Main St"],"city":"Austin","countryId":"US","postcode":"73301","telephone":"555-0100"},
	"billingAddress":{"firstname":"Jane","lastname":"Doe","email":"jane@example.com","street":["1 Main St"],"city":"Austin","countryId":"US","postcode":"73301"},
	"shippingCarrierCode":"flatrate","shippingMethodCode":"flatrate"}}`

func TestGuestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	cartToken := s.newCart(t, "")
	q := "?cartId=" + cartToken

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `{"cartItem":{"sku":"A1","qty":2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var item domain.CartItem
	require.NoError(t, json.Unmarshal(resp.Result, &item))
	assert.Equal(t, "A1", item.SKU)
	assert.Equal(t, 2, item.Qty)

	_, resp = s.do(t, http.MethodGet, "/vsbridge/cart/pull"+q, "")
	var items []domain.CartItem
	require.NoError(t, json.Unmarshal(resp.Result, &items))
	require.Len(t, items, 1)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/cart/apply-coupon"+q+"&coupon=SAVE10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, resp = s.do(t, http.MethodGet, "/vsbridge/cart/coupon"+q, "")
	assert.Equal(t, "SAVE10", resultString(t, resp))

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/shipping-methods"+q, `{"address":{"country_id":"US"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rates []map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &rates))
	require.Len(t, rates, 3)
	assert.Equal(t, "flatrate", rates[0]["carrier_code"])
	assert.Equal(t, "flatrate_flatrate", rates[0]["method_code"])
	assert.Equal(t, "flatrate_flatrate", rates[0]["code"])
	assert.Equal(t, "flatrate", rates[0]["method"])
	assert.Equal(t, "ups_ground", rates[1]["method_code"])
	assert.Equal(t, 5.0, rates[0]["amount"])

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/cart/shipping-information"+q, shippingInformation)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = s.do(t, http.MethodPost, "/vsbridge/cart/payment-information"+q, `{"paymentMethod":{"method":"checkmo"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, resp = s.do(t, http.MethodGet, "/vsbridge/cart/totals"+q, "")
	var totals domain.Totals
	require.NoError(t, json.Unmarshal(resp.Result, &totals))
	assert.Equal(t, domain.Money(4000), totals.Subtotal)
	assert.Equal(t, domain.Money(-400), totals.DiscountAmount)
	assert.Equal(t, domain.Money(500), totals.ShippingAmount)
	assert.Equal(t, domain.Money(4100), totals.GrandTotal)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/order/create"+q, `{"paymentMethod":{"method":"checkmo"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "100000001", result["orderId"])
	assert.Equal(t, 41.0, result["totals"])
	assert.Equal(t, []string{"100000001"}, s.notifier.placed)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `{"cartItem":{"sku":"A1","qty":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrCartConverted.Msg, resp.Message)

	_, resp = s.do(t, http.MethodGet, "/vsbridge/stock/check?sku=A1", "")
	var stock productsvc.StockItem
	require.NoError(t, json.Unmarshal(resp.Result, &stock))
	assert.Equal(t, 8, stock.Qty)
}

func TestTotalsWithSelections(t *testing.T) {
	s := newTestServer(t)
	q := "?cartId=" + s.newCart(t, "")
	s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `{"cartItem":{"sku":"A1","qty":1}}`)
	rec, _ := s.do(t, http.MethodPost, "/vsbridge/cart/shipping-information"+q, shippingInformation)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/cart/totals"+q,
		`{"methods":{"paymentMethod":{"method":"checkmo"}},"addressInformation":{"shipping_address":{"country_id":"US"},"shipping_carrier_code":"ups","shipping_method_code":"ground"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var totals domain.Totals
	require.NoError(t, json.Unmarshal(resp.Result, &totals))
	assert.Equal(t, domain.Money(250), totals.ShippingAmount)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/totals"+q, `{"methods":{"shippingCarrierCode":"nope","shippingMethodCode":"nope"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrShippingMethodInvalid.Msg, resp.Message)
}

func TestCartErrors(t *testing.T) {
	s := newTestServer(t)
	q := "?cartId=" + s.newCart(t, "")

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `{"cartItem":{"sku":"MISSING","qty":1}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.ErrProductNotFound.Msg, resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No cartItem data provided!", resp.Message)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/cart/update"+q, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/apply-coupon"+q+"&coupon=BOGUS", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrInvalidCoupon.Msg, resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/delete"+q, `{"cartItem":{"item_id":"nope"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.ErrItemNotFound.Msg, resp.Message)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/order/create"+q, `{"paymentMethod":{"method":"checkmo"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodGuard(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/vsbridge/cart/update", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Only POST method allowed", resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/cart/pull", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Only GET method allowed", resp.Message)

	_, resp = s.do(t, http.MethodPut, "/vsbridge/cart/totals", "")
	assert.Equal(t, "Only GET or POST methods allowed", resp.Message)
}

func TestCartAccessDenials(t *testing.T) {
	s := newTestServer(t)
	accessToken := s.signup(t, "jane@example.com", "Secret123")
	customerCart := s.newCart(t, accessToken)

	rec, _ := s.do(t, http.MethodGet, "/vsbridge/cart/pull?cartId="+customerCart+"&token="+accessToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the customer's cart resolves from the access token alone
	rec, _ = s.do(t, http.MethodGet, "/vsbridge/cart/pull?token="+accessToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	otherToken := s.signup(t, "john@example.com", "Secret123")
	denied := []string{
		"/vsbridge/cart/pull?cartId=" + customerCart,
		"/vsbridge/cart/pull?cartId=" + customerCart + "&token=" + otherToken,
		"/vsbridge/cart/pull?cartId=garbage",
		"/vsbridge/cart/pull",
		"/vsbridge/cart/pull?cartId=" + customerCart + "&token=forged",
	}
	for _, target := range denied {
		rec, resp := s.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, domain.ErrAccessDenied.Msg, resp.Message, target)
	}
}

func TestAuthorizationHeaderCarriesToken(t *testing.T) {
	s := newTestServer(t)
	accessToken := s.signup(t, "jane@example.com", "Secret123")

	req := httptest.NewRequest(http.MethodGet, "/vsbridge/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"email":"jane@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUserAccountFlow(t *testing.T) {
	s := newTestServer(t)
	accessToken := s.signup(t, "jane@example.com", "Secret123")

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/user/create",
		`{"customer":{"email":"jane@example.com","firstname":"Jane","lastname":"Doe"},"password":"Secret123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.ErrEmailTaken.Msg, resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/user/login", `{"username":"jane@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, customersvc.ErrInvalidCredentials.Msg, resp.Message)

	_, resp = s.do(t, http.MethodPost, "/vsbridge/user/login", `{"username":"jane@example.com","password":"Secret123"}`)
	rec, resp = s.do(t, http.MethodPost, "/vsbridge/user/refresh", `{"refreshToken":"`+resp.Meta["refreshToken"]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, resultString(t, resp))

	rec, resp = s.do(t, http.MethodPost, "/vsbridge/user/me?token="+accessToken, `{"customer":{"firstname":"Janet"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var customer domain.Customer
	require.NoError(t, json.Unmarshal(resp.Result, &customer))
	assert.Equal(t, "Janet", customer.Firstname)
	assert.Equal(t, "Doe", customer.Lastname)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/user/changePassword?token="+accessToken, `{"currentPassword":"Secret123","newPassword":"Changed123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = s.do(t, http.MethodPost, "/vsbridge/user/login", `{"username":"jane@example.com","password":"Changed123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/vsbridge/user/order-history?token="+accessToken+"&pageSize=500", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var history order.History
	require.NoError(t, json.Unmarshal(resp.Result, &history))
	assert.Empty(t, history.Items)
	assert.Equal(t, order.MaxPageSize, history.PageSize)

	rec, resp = s.do(t, http.MethodGet, "/vsbridge/user/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errNotSignedIn.Msg, resp.Message)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "jane@example.com", "Secret123")

	rec, _ := s.do(t, http.MethodPost, "/vsbridge/user/resetPassword", `{"email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = s.do(t, http.MethodPost, "/vsbridge/user/resetPassword", `{"email":"nobody@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.notifier.resets, 1)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/user/create-password", `{"resetToken":"`+s.notifier.resets[0]+`","newPassword":"Fresh1234"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, resp := s.do(t, http.MethodPost, "/vsbridge/user/create-password", `{"resetToken":"`+s.notifier.resets[0]+`","newPassword":"Again1234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, customersvc.ErrInvalidResetToken.Msg, resp.Message)

	rec, _ = s.do(t, http.MethodPost, "/vsbridge/user/login", `{"username":"jane@example.com","password":"Fresh1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreAndStock(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/vsbridge/stock/check?sku=A1&storeCode=unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "store not found", resp.Message)

	rec, resp = s.do(t, http.MethodGet, "/vsbridge/stock/check?sku=A1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stock productsvc.StockItem
	require.NoError(t, json.Unmarshal(resp.Result, &stock))
	assert.Equal(t, 10, stock.Qty)
	assert.True(t, stock.IsInStock)

	rec, _ = s.do(t, http.MethodGet, "/vsbridge/stock/check", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory")

	rec, _ = s.do(t, http.MethodGet, "/vsbridge/stock/check?sku=A1", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec, _ = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vsbridge_http_requests_total")
}
