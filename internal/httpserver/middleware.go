package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/domain"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxLogger    = "logger"
	ctxStore     = "store"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = ulid.Make().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLogMiddleware logs one line per request and reports it to metrics. Handlers
// find the request scoped logger under ctxLogger.
func accessLogMiddleware(logger *log.Entry, metrics RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		entry := logger.WithField("request_id", c.GetString(ctxRequestID))
		c.Set(ctxLogger, entry)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(started)
		status := c.Writer.Status()
		if metrics != nil {
			metrics.ObserveHTTP(c.Request.Method, route, status, elapsed)
		}
		fields := log.Fields{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
		}
		if status >= http.StatusInternalServerError {
			entry.WithFields(fields).Warn("request served")
			return
		}
		entry.WithFields(fields).Debug("request served")
	}
}

func requestLogger(c *gin.Context) *log.Entry {
	if v, ok := c.Get(ctxLogger); ok {
		if entry, ok := v.(*log.Entry); ok {
			return entry
		}
	}
	return log.NewEntry(log.StandardLogger())
}

// storeMiddleware resolves the storeCode query parameter, falling back to the default
// store.
func storeMiddleware(repo StoreRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.TrimSpace(c.Query("storeCode"))
		if code == "" {
			code = domain.DefaultStoreCode
		}
		store, err := repo.GetByCode(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				abort(c, http.StatusNotFound, "store not found")
				return
			}
			requestLogger(c).WithError(err).WithField("store_code", code).Error("load store")
			abort(c, http.StatusInternalServerError, "failed to load store")
			return
		}
		c.Set(ctxStore, *store)
		c.Next()
	}
}

func currentStore(c *gin.Context) domain.Store {
	store, _ := c.MustGet(ctxStore).(domain.Store)
	return store
}

// route registers h for every method and answers the disallowed ones the way the
// storefront expects: status 500 and an "Only X method allowed" message.
func route(g *gin.RouterGroup, path string, h gin.HandlerFunc, methods ...string) {
	msg := "Only " + strings.Join(methods, " or ") + " method allowed"
	if len(methods) > 1 {
		msg = "Only " + strings.Join(methods, " or ") + " methods allowed"
	}
	g.Any(path, func(c *gin.Context) {
		for _, m := range methods {
			if c.Request.Method == m {
				h(c)
				return
			}
		}
		abort(c, http.StatusInternalServerError, msg)
	})
}

// bearerToken returns the token query parameter or the Authorization bearer token.
func bearerToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
