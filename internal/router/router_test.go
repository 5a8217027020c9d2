package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/middleware"
	ws "github.com/ikkim/storefront-cart/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouterTest(t *testing.T) http.Handler {
	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: "test"},
		Cart:    config.CartConfig{StorageBackend: config.StorageBackendMemory},
		Session: config.SessionConfig{Secret: "router-test-secret", TTL: time.Hour},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}

	carts := service.NewCartRegistry(repository.NewMemoryCartStateRepository(), "cart-storage", time.Second)
	r := NewRouter(
		controller.NewCartController(carts),
		controller.NewCartFeedController(carts, ws.NewHub(), cfg.CORS.AllowedOrigins),
		middleware.NewSessionMiddleware(cfg.Session.Secret, cfg.Session.TTL, false),
		cfg,
	)
	return r.Setup()
}

func TestRouter_Health(t *testing.T) {
	handler := setupRouterTest(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_CORSPreflight(t *testing.T) {
	handler := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.SessionHeader)
}

func TestRouter_SessionCarriesCartAcrossRequests(t *testing.T) {
	handler := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"id":"p1","name":"Toner","price":20}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	token := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.SessionHeader, token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"total_items":1`)

	// Without the token a new, empty cart is issued
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Contains(t, w.Body.String(), `"total_items":0`)
}
