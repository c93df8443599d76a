package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/models"
)

func testUser(role string) *models.User {
	return &models.User{
		ID:    1,
		Email: "buyer@example.com",
		Role:  role,
	}
}

func TestParseTokenEnforcesTokenType(t *testing.T) {
	secret := "test-secret"

	access, err := NewAccessToken(testUser(models.RoleCustomer), secret, time.Hour)
	assert.NoError(t, err)
	refresh, err := NewRefreshToken(testUser(models.RoleCustomer), secret, time.Hour)
	assert.NoError(t, err)

	claims, err := ParseToken(access, TokenTypeAccess, secret)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, models.RoleCustomer, claims.Role)

	// A refresh token never passes as an access token, and vice versa.
	_, err = ParseToken(refresh, TokenTypeAccess, secret)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = ParseToken(access, TokenTypeRefresh, secret)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestJwtAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret: "test-secret",
	}

	validToken, _ := NewAccessToken(testUser(models.RoleCustomer), cfg.JWTSecret, time.Hour)
	expiredToken, _ := NewAccessToken(testUser(models.RoleCustomer), cfg.JWTSecret, -time.Hour)
	refreshToken, _ := NewRefreshToken(testUser(models.RoleCustomer), cfg.JWTSecret, time.Hour)
	wrongSecretToken, _ := NewAccessToken(testUser(models.RoleCustomer), "other-secret", time.Hour)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedRole   string
		expectedCode   string
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + validToken,
			expectedStatus: http.StatusOK,
			expectedRole:   models.RoleCustomer,
		},
		{
			name:           "Missing Header",
			authHeader:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Invalid " + validToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + expiredToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "ExpiredToken",
		},
		{
			name:           "Refresh Token On Access Route",
			authHeader:     "Bearer " + refreshToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "InvalidToken",
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + wrongSecretToken,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "InvalidToken",
		},
		{
			name:           "Invalid Token",
			authHeader:     "Bearer invalid.token.string",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "InvalidToken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JwtAuthMiddleware(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"role": c.GetString("role")})
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Contains(t, w.Body.String(), tt.expectedCode)
			}
			if tt.expectedRole != "" {
				assert.Contains(t, w.Body.String(), tt.expectedRole)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret: "test-secret",
	}

	tests := []struct {
		name           string
		user           *models.User
		requiredRoles  []string
		expectedStatus int
	}{
		{
			name:           "Admin Reaches Admin Route",
			user:           testUser(models.RoleAdmin),
			requiredRoles:  []string{models.RoleAdmin},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Has One Of Required Roles",
			user:           testUser(models.RoleCustomer),
			requiredRoles:  []string{models.RoleAdmin, models.RoleCustomer},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Customer Blocked From Admin Route",
			user:           testUser(models.RoleCustomer),
			requiredRoles:  []string{models.RoleAdmin},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "No Role In Context",
			user:           nil,
			requiredRoles:  []string{models.RoleAdmin},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			if tt.user != nil {
				router.Use(JwtAuthMiddleware(cfg))
			}
			router.Use(RequireRole(tt.requiredRoles...))
			router.GET("/test", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.user != nil {
				token, _ := NewAccessToken(tt.user, cfg.JWTSecret, time.Hour)
				req.Header.Set("Authorization", "Bearer "+token)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
