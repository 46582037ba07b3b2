package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gomarketplace/internal/domain"
	"gomarketplace/internal/usecase"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	log *slog.Logger
}

func NewCartHandler(logger *slog.Logger) *CartHandler {
	return &CartHandler{
		log: logger,
	}
}

type productsResponse struct {
	Items []domain.LineItem `json:"items"`
	Total float64           `json:"total"`
	Count int               `json:"count"`
}

type mutationResponse struct {
	productsResponse
	Persisted bool `json:"persisted"`
}

// GetProducts returns the cart with its total and item count.
func (h *CartHandler) GetProducts(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	resp, err := snapshot(store)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	var candidate domain.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		h.log.Warn("invalid add to cart request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "request body must be a product json object",
		})
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	h.mutate(c, store, http.StatusCreated, candidate.ID, func() *usecase.Completion {
		return store.AddToCart(candidate)
	})
}

func (h *CartHandler) Increment(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id := c.Param("id")
	h.mutate(c, store, http.StatusOK, id, func() *usecase.Completion {
		return store.Increment(id)
	})
}

func (h *CartHandler) Decrement(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id := c.Param("id")
	h.mutate(c, store, http.StatusOK, id, func() *usecase.Completion {
		return store.Decrement(id)
	})
}

func (h *CartHandler) mutate(c *gin.Context, store *usecase.CartStore, status int, id string, op func() *usecase.Completion) {
	startTime := time.Now()

	err := op().Wait(c.Request.Context())
	persisted := err == nil
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidProduct):
		h.log.Warn("product rejected", "product_id", id, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_product",
			"message": err.Error(),
		})
		return
	case errors.Is(err, domain.ErrStoreNotInitialized), errors.Is(err, domain.ErrStoreClosed):
		h.storeError(c, err)
		return
	default:
		h.log.Error("cart change not persisted", "product_id", id, "error", err)
	}

	resp, err := snapshot(store)
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.Header("X-Execution-Time-MS", fmt.Sprintf("%d", time.Since(startTime).Milliseconds()))
	c.JSON(status, mutationResponse{productsResponse: resp, Persisted: persisted})
}

func (h *CartHandler) store(c *gin.Context) (*usecase.CartStore, bool) {
	store, err := usecase.FromContext(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return nil, false
	}
	return store, true
}

func (h *CartHandler) storeError(c *gin.Context, err error) {
	h.log.Error("cart store unavailable", "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "store_unavailable",
		"message": err.Error(),
	})
}

func snapshot(store *usecase.CartStore) (productsResponse, error) {
	items, err := store.Products()
	if err != nil {
		return productsResponse{}, err
	}
	var resp productsResponse
	resp.Items = items
	for _, item := range items {
		resp.Total += item.Subtotal()
		resp.Count += item.Quantity
	}
	return resp, nil
}

func (h *CartHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "cart-api",
	})
}
