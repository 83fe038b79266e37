package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"vsbridge/internal/domain"
)

type stubStoreRepo struct {
	store *domain.Store
	err   error
	code  string
}

func (s *stubStoreRepo) GetByCode(_ context.Context, code string) (*domain.Store, error) {
	s.code = code
	return s.store, s.err
}

func storeRouter(repo StoreRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(storeMiddleware(repo))
	router.GET("/test", func(c *gin.Context) {
		if currentStore(c).ID == "" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestStoreMiddleware_DefaultsStoreCode(t *testing.T) {
	repo := &stubStoreRepo{store: &domain.Store{ID: "1", Code: domain.DefaultStoreCode}}
	rec := httptest.NewRecorder()

	storeRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if repo.code != domain.DefaultStoreCode {
		t.Fatalf("expected default store code, got %q", repo.code)
	}
}

func TestStoreMiddleware_ExplicitCode(t *testing.T) {
	repo := &stubStoreRepo{store: &domain.Store{ID: "2", Code: "de"}}
	rec := httptest.NewRecorder()

	storeRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test?storeCode=de", nil))

	if rec.Code != http.StatusOK || repo.code != "de" {
		t.Fatalf("expected store de, got status %d code %q", rec.Code, repo.code)
	}
}

func TestStoreMiddleware_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()

	storeRouter(&stubStoreRepo{err: domain.ErrNotFound}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestStoreMiddleware_Error(t *testing.T) {
	rec := httptest.NewRecorder()

	storeRouter(&stubStoreRepo{err: errors.New("boom")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrOutOfStock, http.StatusBadRequest},
		{domain.ErrAccessDenied, http.StatusUnauthorized},
		{domain.ErrProductNotFound, http.StatusNotFound},
		{domain.ErrEmailTaken, http.StatusConflict},
		{domain.ErrPaymentDeclined, http.StatusBadGateway},
		{&domain.SubmissionError{Cause: domain.ErrPaymentDeclined}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		target string
		header string
		want   string
	}{
		"query":  {target: "/?token=abc", want: "abc"},
		"header": {target: "/", header: "Bearer xyz", want: "xyz"},
		"both":   {target: "/?token=abc", header: "Bearer xyz", want: "abc"},
		"basic":  {target: "/", header: "Basic xyz", want: ""},
	}
	for name, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(c); got != tc.want {
			t.Errorf("%s: got %q, want %q", name, got, tc.want)
		}
	}
}
