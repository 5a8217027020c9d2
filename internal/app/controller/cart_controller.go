package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/internal/middleware"
)

type CartController struct {
	carts service.CartRegistry
}

func NewCartController(carts service.CartRegistry) *CartController {
	return &CartController{
		carts: carts,
	}
}

type CategoryRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AddCartItemRequest is the product as shown on the detail page. A
// "quantity" field sent by older clients is ignored; Increment adds several
// units in one call.
type AddCartItemRequest struct {
	ID        string          `json:"id" binding:"required"`
	Name      string          `json:"name"`
	Price     float64         `json:"price" binding:"gte=0"`
	Category  CategoryRequest `json:"category"`
	Rating    float64         `json:"rating"`
	Reviews   int             `json:"reviews"`
	Image     string          `json:"image"`
	Images    []string        `json:"images"`
	Increment int             `json:"increment" binding:"omitempty,gte=1"`
}

func (r AddCartItemRequest) toProduct() model.Product {
	return model.Product{
		ID:       strings.TrimSpace(r.ID),
		Name:     r.Name,
		Price:    r.Price,
		Category: model.Category{ID: r.Category.ID, Name: r.Category.Name},
		Rating:   r.Rating,
		Reviews:  r.Reviews,
		Image:    r.Image,
		Images:   r.Images,
	}
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

// cartStore resolves the session's store or writes the error response
func (ctrl *CartController) cartStore(c *gin.Context) (*service.CartStore, bool) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		log.Warn("Cart request without session", nil)
		errors.Unauthorized(c, "")
		return nil, false
	}

	store, err := ctrl.carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		log.Error("Failed to resolve cart", err, map[string]interface{}{
			"session_id": sessionID,
		})
		errors.ParseAndRespond(c, err)
		return nil, false
	}
	return store, true
}

func respondWithCart(c *gin.Context, store *service.CartStore) {
	snapshot := store.Snapshot()
	if store.Dirty() {
		c.Header("X-Cart-Persist", errors.CartPersistPending)
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetCart returns the session's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	store, ok := ctrl.cartStore(c)
	if !ok {
		return
	}
	respondWithCart(c, store)
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.RespondWithValidationError(c, errors.BindingFields(err))
		return
	}

	store, ok := ctrl.cartStore(c)
	if !ok {
		return
	}

	product := req.toProduct()
	var err error
	if req.Increment > 0 {
		err = store.AddItemQuantity(product, req.Increment)
	} else {
		err = store.AddItem(product)
	}
	if err != nil {
		log.Warn("Cannot add item to cart", map[string]interface{}{
			"product_id": req.ID,
			"error":      err.Error(),
		})
		errors.ParseAndRespond(c, err)
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"product_id":  product.ID,
		"total_items": store.GetTotalItems(),
	})
	respondWithCart(c, store)
}

// UpdateItem sets the quantity of a cart item
// PATCH /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	productID := c.Param("productId")

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		errors.RespondWithValidationError(c, errors.BindingFields(err))
		return
	}

	store, ok := ctrl.cartStore(c)
	if !ok {
		return
	}

	store.UpdateQuantity(productID, req.Quantity)
	log.Info("Cart item quantity updated", map[string]interface{}{
		"product_id": productID,
		"quantity":   req.Quantity,
	})
	respondWithCart(c, store)
}

// RemoveItem deletes an item from the cart
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	store, ok := ctrl.cartStore(c)
	if !ok {
		return
	}

	productID := c.Param("productId")
	store.RemoveItem(productID)

	middleware.GetLoggerFromContext(c).Info("Cart item removed", map[string]interface{}{
		"product_id": productID,
	})
	respondWithCart(c, store)
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	store, ok := ctrl.cartStore(c)
	if !ok {
		return
	}

	store.ClearCart()

	middleware.GetLoggerFromContext(c).Info("Cart cleared", nil)
	respondWithCart(c, store)
}
