package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/cooldown"
	"github.com/yourusername/peptide-shop/middleware"
	"github.com/yourusername/peptide-shop/models"
	"github.com/yourusername/peptide-shop/notify"
)

func idParam(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func ordersRouter(h *OrderHandler) *gin.Engine {
	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Next()
	})
	router.POST("/orders", h.CreateOrder)
	router.GET("/orders/:id", h.GetOrder)
	router.POST("/orders/:id/resend-confirmation", h.ResendConfirmation)
	return router
}

func TestCreateOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB()
	gate := cooldown.NewGate(cooldown.NewMemoryStore(), 15*time.Minute)
	handler := NewOrderHandler(db, &config.Config{}, gate, notify.NewLogNotifier())
	router := ordersRouter(handler)

	t.Run("Valid Request", func(t *testing.T) {
		body, _ := json.Marshal(CreateOrderRequest{
			Total:    "0.002",
			Currency: "BTC",
			Email:    "buyer@example.com",
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders", bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var order models.Order
		db.First(&order)
		assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
		assert.Equal(t, "0.002", order.Total.String())
		assert.Equal(t, "BTC", order.Currency)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		body, _ := json.Marshal(CreateOrderRequest{
			Total:    "-1",
			Currency: "BTC",
			Email:    "buyer@example.com",
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/orders", bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestResendConfirmationCooldown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB()
	gate := cooldown.NewGate(cooldown.NewMemoryStore(), 15*time.Minute)
	handler := NewOrderHandler(db, &config.Config{}, gate, notify.NewLogNotifier())
	router := ordersRouter(handler)

	order := createPendingOrder(db, "0.002")

	// First resend is allowed and records the fire.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/orders/"+idParam(order.ID)+"/resend-confirmation", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sent":true`)

	var entry models.CooldownEntry
	assert.NoError(t, db.Where("key = ?", order.OrderNo).First(&entry).Error)

	// Second attempt inside the window is throttled with a countdown.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/orders/"+idParam(order.ID)+"/resend-confirmation", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Sent              bool `json:"sent"`
		RetryAfterSeconds int  `json:"retry_after_seconds"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Sent)
	assert.Greater(t, resp.RetryAfterSeconds, 14*60)
	assert.LessOrEqual(t, resp.RetryAfterSeconds, 15*60)
}

func TestListSettlementsAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB()
	cfg := authTestConfig()
	gate := cooldown.NewGate(cooldown.NewMemoryStore(), 15*time.Minute)
	handler := NewOrderHandler(db, cfg, gate, notify.NewLogNotifier())

	// Wired the way main sets up the back-office group.
	router := gin.Default()
	admin := router.Group("/admin")
	admin.Use(middleware.JwtAuthMiddleware(cfg), middleware.RequireRole(models.RoleAdmin))
	admin.GET("/settlements", handler.ListSettlements)

	order := createPendingOrder(db, "0.002")
	settled, _ := decimal.NewFromString("0.002")
	db.Create(&models.CompletionRecord{
		OrderID:         order.ID,
		TransactionHash: "deadbeef",
		SettledAmount:   settled,
		Currency:        "BTC",
		Confirmations:   1,
		SettledAt:       time.Now(),
	})

	adminToken, _ := middleware.NewAccessToken(&models.User{ID: 1, Email: "ops@example.com", Role: models.RoleAdmin}, cfg.JWTSecret, time.Hour)
	customerToken, _ := middleware.NewAccessToken(&models.User{ID: 2, Email: "buyer@example.com", Role: models.RoleCustomer}, cfg.JWTSecret, time.Hour)

	t.Run("Admin Sees Settlements", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/admin/settlements", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "deadbeef")
		assert.Contains(t, w.Body.String(), order.OrderNo)
	})

	t.Run("Customer Forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/admin/settlements", nil)
		req.Header.Set("Authorization", "Bearer "+customerToken)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Anonymous Unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/admin/settlements", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestResendConfirmationUnknownOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB()
	gate := cooldown.NewGate(cooldown.NewMemoryStore(), 15*time.Minute)
	handler := NewOrderHandler(db, &config.Config{}, gate, notify.NewLogNotifier())
	router := ordersRouter(handler)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/orders/9999/resend-confirmation", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
