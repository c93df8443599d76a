package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yourusername/peptide-shop/config"
	"github.com/yourusername/peptide-shop/models"
)

// Token types carried in the "typ" claim. Access tokens authenticate API
// calls; refresh tokens are only redeemable at the refresh endpoint and are
// rejected everywhere else.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const tokenIssuer = "peptide-shop"

// CustomerClaims are the JWT claims issued to storefront accounts.
type CustomerClaims struct {
	UserID    uint   `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrWrongTokenType = errors.New("wrong token type")
)

// NewAccessToken issues a short-lived access token for a customer account.
func NewAccessToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	return signToken(user, TokenTypeAccess, secret, ttl)
}

// NewRefreshToken issues a long-lived refresh token. It is signed with the
// refresh secret, so it can never pass access-token validation.
func NewRefreshToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	return signToken(user, TokenTypeRefresh, secret, ttl)
}

func signToken(user *models.User, tokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomerClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a signed token of the given type against the given
// secret and returns its claims.
func ParseToken(tokenString, tokenType, secret string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// JwtAuthMiddleware validates the bearer access token and stores the
// authenticated account in the context.
func JwtAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required", "")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			abortUnauthorized(c, "Invalid authorization header format", "")
			return
		}

		claims, err := ParseToken(tokenString, TokenTypeAccess, cfg.JWTSecret)
		if errors.Is(err, ErrTokenExpired) {
			abortUnauthorized(c, "Token has expired", "ExpiredToken")
			return
		}
		if err != nil {
			abortUnauthorized(c, "Invalid token", "InvalidToken")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole restricts a route to the given roles. It runs after
// JwtAuthMiddleware, which stores the authenticated role in the context.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			abortUnauthorized(c, "User role not found in context", "")
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
	}
}

func abortUnauthorized(c *gin.Context, msg, code string) {
	body := gin.H{"error": msg}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}
