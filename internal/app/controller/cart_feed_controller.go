package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/internal/middleware"
	ws "github.com/ikkim/storefront-cart/internal/websocket"
)

type CartFeedController struct {
	carts    service.CartRegistry
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
}

func NewCartFeedController(carts service.CartRegistry, hub *ws.Hub, allowedOrigins []string) *CartFeedController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &CartFeedController{
		carts: carts,
		hub:   hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Subscribe streams the session's cart over a websocket, starting with the
// current cart and then one event per change.
// GET /api/v1/cart/ws
func (ctrl *CartFeedController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}

	store, err := ctrl.carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		errors.ParseAndRespond(c, err)
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade cart feed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, sessionID)

	// Register before reading the cart so no change falls in between
	ctrl.hub.Register(client)
	if err := ctrl.hub.SendSnapshot(client, store.Snapshot()); err != nil {
		log.Error("Failed to send initial cart", err, map[string]interface{}{
			"session_id": sessionID,
		})
	}

	go client.WritePump()
	go client.ReadPump()

	log.Info("Cart feed connected", map[string]interface{}{
		"session_id": sessionID,
	})
}
