package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/cooldown"
	"github.com/yourusername/peptide-shop/models"
	"github.com/yourusername/peptide-shop/notify"
	"gorm.io/gorm"
)

type OrderHandler struct {
	db       *gorm.DB
	config   *config.Config
	gate     *cooldown.Gate
	notifier notify.Notifier
}

func NewOrderHandler(db *gorm.DB, cfg *config.Config, gate *cooldown.Gate, notifier notify.Notifier) *OrderHandler {
	return &OrderHandler{
		db:       db,
		config:   cfg,
		gate:     gate,
		notifier: notifier,
	}
}

type CreateOrderRequest struct {
	Total    string `json:"total" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Notes    string `json:"notes"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := decimal.NewFromString(req.Total)
	if err != nil || !total.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Total must be a positive decimal amount"})
		return
	}

	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order := models.Order{
		CustomerID: userID.(uint),
		OrderNo:    fmt.Sprintf("PEP-%d-%d", time.Now().Unix(), userID.(uint)),
		Total:      total,
		Currency:   req.Currency,
		Status:     models.OrderStatusPendingPayment,
		Email:      req.Email,
		Notes:      req.Notes,
	}

	if err := h.db.Create(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	var order models.Order

	if err := h.db.First(&order, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var orders []models.Order
	if err := h.db.Where("customer_id = ?", userID).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// ListSettlements returns confirmed payment records for back-office review.
// Admin only.
func (h *OrderHandler) ListSettlements(c *gin.Context) {
	var records []models.CompletionRecord
	if err := h.db.Preload("Order").Order("settled_at DESC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settlements"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// ResendConfirmation re-sends the order confirmation email, throttled by the
// cooldown gate. A denied attempt is not an error: the client gets the wait
// time for its countdown display.
func (h *OrderHandler) ResendConfirmation(c *gin.Context) {
	id := c.Param("id")
	var order models.Order

	if err := h.db.First(&order, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	allowed, remaining, err := h.gate.TryFire(c.Request.Context(), order.OrderNo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check resend cooldown"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"sent":                false,
			"retry_after_seconds": int(math.Ceil(remaining.Seconds())),
		})
		return
	}

	if err := h.notifier.SendOrderConfirmation(c.Request.Context(), &order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send confirmation"})
		return
	}

	// Audit row; admission control already happened in the gate.
	now := time.Now()
	entry := models.CooldownEntry{Key: order.OrderNo, LastFiredAt: now}
	h.db.Where(models.CooldownEntry{Key: order.OrderNo}).
		Assign(models.CooldownEntry{LastFiredAt: now}).
		FirstOrCreate(&entry)

	c.JSON(http.StatusOK, gin.H{"sent": true})
}
