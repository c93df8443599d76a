package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/models"
	"github.com/yourusername/peptide-shop/payment"
	"gorm.io/gorm"
)

type CheckoutHandler struct {
	db      *gorm.DB
	config  *config.Config
	manager *payment.Manager
}

func NewCheckoutHandler(db *gorm.DB, cfg *config.Config, manager *payment.Manager) *CheckoutHandler {
	return &CheckoutHandler{
		db:      db,
		config:  cfg,
		manager: manager,
	}
}

type ArmSessionRequest struct {
	OrderID       uint   `json:"order_id" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
	Acknowledged  bool   `json:"acknowledged"`
}

// ArmSession starts payment confirmation for an order. The expected amount and
// currency come from the order record, never from the client. Polling begins
// only after the user has acknowledged the expected-wait disclosure.
func (h *CheckoutHandler) ArmSession(c *gin.Context) {
	var req ArmSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	if err := h.db.First(&order, req.OrderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.Status != models.OrderStatusPendingPayment {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not awaiting payment"})
		return
	}

	session, err := h.manager.Arm(payment.ArmRequest{
		OrderID:        order.ID,
		ExpectedAmount: order.Total,
		Currency:       order.Currency,
		WalletAddress:  req.WalletAddress,
		TransactionID:  req.TransactionID,
		Acknowledged:   req.Acknowledged,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotAcknowledged):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrMissingInputs), errors.Is(err, payment.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to arm payment session"})
		}
		return
	}

	c.JSON(http.StatusCreated, session.Snapshot())
}

// GetSession reports the current state and progress for the checkout UI.
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	session, err := h.manager.Get(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment session not found"})
		return
	}

	c.JSON(http.StatusOK, session.Snapshot())
}

// CancelSession discards a session that has not yet seen a payment.
func (h *CheckoutHandler) CancelSession(c *gin.Context) {
	err := h.manager.Cancel(c.Param("token"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	case errors.Is(err, payment.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment session not found"})
	case errors.Is(err, payment.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "A payment has been detected; the session can no longer be cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel payment session"})
	}
}
