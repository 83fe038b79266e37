package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
	"vsbridge/internal/logging"
	"vsbridge/internal/service/checkout"
	customersvc "vsbridge/internal/service/customer"
	"vsbridge/internal/service/order"
	productsvc "vsbridge/internal/service/product"
	"vsbridge/internal/service/quote"
)

type StoreRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Store, error)
}

type Tokens interface {
	Verify(raw string) (map[string]any, error)
	MintCart(cartID string) (string, error)
}

type CartResolver interface {
	Resolve(ctx context.Context, store domain.Store, id quote.Identity, explicitCartToken string) (*domain.Cart, error)
	CreateOrReuse(ctx context.Context, store domain.Store, customerID *string) (*domain.Cart, error)
}

type CheckoutService interface {
	AddOrUpdateItem(ctx context.Context, store domain.Store, cart *domain.Cart, in checkout.ItemInput) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, store domain.Store, cart *domain.Cart, itemID string) error
	ApplyCoupon(ctx context.Context, store domain.Store, cart *domain.Cart, code string) (*domain.Totals, error)
	ClearCoupon(ctx context.Context, store domain.Store, cart *domain.Cart) (*domain.Totals, error)
	SetBillingAddress(ctx context.Context, store domain.Store, cart *domain.Cart, addr domain.Address) (*domain.Totals, error)
	SetShippingInformation(ctx context.Context, store domain.Store, cart *domain.Cart, in checkout.ShippingInformation) (*domain.Totals, error)
	SetPaymentMethod(ctx context.Context, store domain.Store, cart *domain.Cart, method string, additionalData json.RawMessage) (*domain.Totals, error)
	CollectTotals(ctx context.Context, store domain.Store, cart *domain.Cart, in checkout.TotalsInput) (*domain.Totals, error)
	ShippingMethods(ctx context.Context, store domain.Store, cart *domain.Cart, countryID string) ([]domain.ShippingRate, error)
	PaymentMethods(ctx context.Context, store domain.Store, cart *domain.Cart) []domain.PaymentMethod
}

type OrderService interface {
	Submit(ctx context.Context, store domain.Store, cart *domain.Cart, in order.SubmitInput) (*order.Result, error)
	History(ctx context.Context, customerID string, page, pageSize int) (*order.History, error)
}

type CustomerService interface {
	Create(ctx context.Context, store domain.Store, in customersvc.CreateInput) (*domain.Customer, error)
	Login(ctx context.Context, username, password string) (*customersvc.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*customersvc.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ChangePassword(ctx context.Context, customerID, current, next string) error
	Me(ctx context.Context, customerID string) (*domain.Customer, error)
	Update(ctx context.Context, customerID string, in customersvc.UpdateInput) (*domain.Customer, error)
}

type StockService interface {
	Stock(ctx context.Context, sku string) (*productsvc.StockItem, error)
}

type RequestObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Deps holds the collaborators of the router. DB, Metrics and MetricsHandler are
// optional.
type Deps struct {
	Stores      StoreRepo
	Tokens      Tokens
	Carts       CartResolver
	Checkout    CheckoutService
	Orders      OrderService
	Customers   CustomerService
	Stock       StockService
	DB          Pinger
	Metrics     RequestObserver
	CORSOrigins []string
	// MetricsHandler serves /metrics. Defaults to the default Prometheus registry.
	MetricsHandler http.Handler
}

func (d Deps) validate() error {
	switch {
	case d.Stores == nil:
		return errors.New("httpserver: store repository is required")
	case d.Tokens == nil:
		return errors.New("httpserver: token service is required")
	case d.Carts == nil || d.Checkout == nil || d.Orders == nil:
		return errors.New("httpserver: cart, checkout and order services are required")
	case d.Customers == nil || d.Stock == nil:
		return errors.New("httpserver: customer and stock services are required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Entry, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), accessLogMiddleware(logger, deps.Metrics), corsMiddleware(deps.CORSOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	router.GET("/metrics", gin.WrapH(metricsHandler))

	h := &handlers{deps: deps}
	api := router.Group("/vsbridge", storeMiddleware(deps.Stores))

	route(api, "/cart/create", h.cartCreate, http.MethodPost)
	route(api, "/cart/pull", h.cartPull, http.MethodGet)
	route(api, "/cart/update", h.cartUpdate, http.MethodPost)
	route(api, "/cart/delete", h.cartDelete, http.MethodPost)
	route(api, "/cart/apply-coupon", h.applyCoupon, http.MethodPost)
	route(api, "/cart/delete-coupon", h.deleteCoupon, http.MethodPost)
	route(api, "/cart/coupon", h.coupon, http.MethodGet)
	route(api, "/cart/totals", h.totals, http.MethodGet, http.MethodPost)
	route(api, "/cart/payment-methods", h.paymentMethods, http.MethodGet)
	route(api, "/cart/shipping-methods", h.shippingMethods, http.MethodPost)
	route(api, "/cart/shipping-information", h.shippingInformation, http.MethodPost)
	route(api, "/cart/billing-information", h.billingInformation, http.MethodPost)
	route(api, "/cart/payment-information", h.paymentInformation, http.MethodPost)

	route(api, "/order/create", h.orderCreate, http.MethodPost)

	route(api, "/user/login", h.login, http.MethodPost)
	route(api, "/user/refresh", h.refresh, http.MethodPost)
	route(api, "/user/resetPassword", h.resetPassword, http.MethodPost)
	route(api, "/user/create-password", h.createPassword, http.MethodPost)
	route(api, "/user/changePassword", h.changePassword, http.MethodPost)
	route(api, "/user/create", h.userCreate, http.MethodPost)
	route(api, "/user/me", h.me, http.MethodGet, http.MethodPost)
	route(api, "/user/order-history", h.orderHistory, http.MethodGet)

	route(api, "/stock/check", h.stockCheck, http.MethodGet)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
