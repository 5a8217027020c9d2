package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/db"
	"github.com/ikkim/storefront-cart/internal/middleware"
	"github.com/ikkim/storefront-cart/internal/router"
	ws "github.com/ikkim/storefront-cart/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSessionSecret = "integration-session-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
	Carts  service.CartRegistry
}

func newTestServer(t *testing.T, testDB *gorm.DB) *TestServer {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:  config.ServerConfig{GinMode: gin.TestMode},
		Cart:    config.CartConfig{StorageBackend: config.StorageBackendPostgres, StorageKey: "cart-storage"},
		Session: config.SessionConfig{Secret: testSessionSecret, TTL: time.Hour},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	cartRepo := repository.NewCartStateRepository(testDB)
	carts := service.NewCartRegistry(cartRepo, cfg.Cart.StorageKey, time.Second)

	r := router.NewRouter(
		controller.NewCartController(carts),
		controller.NewCartFeedController(carts, ws.NewHub(), cfg.CORS.AllowedOrigins),
		middleware.NewSessionMiddleware(cfg.Session.Secret, cfg.Session.TTL, false),
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
		Carts:  carts,
	}
}

func setupIntegrationTest(t *testing.T) *TestServer {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return newTestServer(t, testDB)
}

func (s *TestServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) model.CartSnapshot {
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snapshot model.CartSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	return snapshot
}

func TestIntegration_ShoppingFlow(t *testing.T) {
	server := setupIntegrationTest(t)

	// First request opens a session
	w := server.request(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Empty(t, decodeCart(t, w).Items)
	token := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, token)

	toner := map[string]interface{}{"id": "p1", "name": "Toner", "price": 20, "category": map[string]string{"id": "c1", "name": "Skincare"}}
	serum := map[string]interface{}{"id": "p2", "name": "Serum", "price": 15}

	decodeCart(t, server.request(t, http.MethodPost, "/api/v1/cart/items", token, toner))
	decodeCart(t, server.request(t, http.MethodPost, "/api/v1/cart/items", token, toner))
	cart := decodeCart(t, server.request(t, http.MethodPost, "/api/v1/cart/items", token, serum))

	require.Len(t, cart.Items, 2)
	assert.Equal(t, "p1", cart.Items[0].ID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "p2", cart.Items[1].ID)
	assert.Equal(t, 3, cart.TotalItems)
	assert.Equal(t, 55.0, cart.TotalPrice)

	cart = decodeCart(t, server.request(t, http.MethodPatch, "/api/v1/cart/items/p2", token, map[string]int{"quantity": 3}))
	assert.Equal(t, 5, cart.TotalItems)
	assert.Equal(t, 85.0, cart.TotalPrice)

	cart = decodeCart(t, server.request(t, http.MethodDelete, "/api/v1/cart/items/p1", token, nil))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 45.0, cart.TotalPrice)

	cart = decodeCart(t, server.request(t, http.MethodDelete, "/api/v1/cart", token, nil))
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestIntegration_CartSurvivesRestart(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{"id": "p1", "name": "Toner", "price": 20})
	decodeCart(t, w)
	token := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, token)

	// The persisted row uses the versioned layout
	var states []model.CartState
	require.NoError(t, server.DB.Find(&states).Error)
	require.Len(t, states, 1)
	assert.Contains(t, states[0].StorageKey, "cart-storage:")
	assert.JSONEq(t,
		`{"state":{"items":[{"id":"p1","name":"Toner","price":20,"category":{"id":"","name":""},"rating":0,"reviews":0,"image":"","images":null,"quantity":1}]},"version":0}`,
		states[0].Payload,
	)

	// Same database, fresh process state
	restarted := newTestServer(t, server.DB)
	cart := decodeCart(t, restarted.request(t, http.MethodGet, "/api/v1/cart", token, nil))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Toner", cart.Items[0].Name)
	assert.Equal(t, 20.0, cart.TotalPrice)
}

func TestIntegration_SessionsAreIsolated(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{"id": "p1", "price": 10})
	decodeCart(t, w)

	other := decodeCart(t, server.request(t, http.MethodGet, "/api/v1/cart", "", nil))
	assert.Empty(t, other.Items)
	assert.Equal(t, 2, server.Carts.Len())
}

func TestIntegration_ValidationErrors(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/cart/items", "", map[string]interface{}{"name": "No id", "price": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_INVALID_INPUT")

	w = server.request(t, http.MethodPatch, "/api/v1/cart/items/p1", "", map[string]int{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
