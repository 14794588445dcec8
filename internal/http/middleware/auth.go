package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"seatledger/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const callerKey = "caller"

// Identity validates a Bearer HS256 token and stores the caller (claims sub and role).
// With an empty secret identity is not enforced and every caller is anonymous.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(callerKey, domain.RequestContext{Anonymous: true})
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		rc, err := ParseToken(strings.TrimPrefix(auth, "Bearer "), secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(callerKey, rc)
		c.Next()
	}
}

// ParseToken verifies raw and maps its claims onto a RequestContext.
func ParseToken(raw, secret string) (domain.RequestContext, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return domain.RequestContext{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return domain.RequestContext{}, fmt.Errorf("invalid claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return domain.RequestContext{}, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(sub), 10, 64)
	if err != nil || id <= 0 {
		return domain.RequestContext{}, fmt.Errorf("subject is not a customer id")
	}
	role, _ := claims["role"].(string)
	return domain.RequestContext{UserID: domain.ID(id), Role: strings.ToLower(strings.TrimSpace(role))}, nil
}

// GetCaller returns the caller stored by Identity. Without it the zero caller is returned,
// which owns nothing and is not an admin.
func GetCaller(c *gin.Context) domain.RequestContext {
	if v, ok := c.Get(callerKey); ok {
		if rc, ok := v.(domain.RequestContext); ok {
			return rc
		}
	}
	return domain.RequestContext{}
}

// RequireAdmin lets through tokens with role admin, or requests whose X-Admin-Key matches
// the bcrypt hash. In anonymous mode without a hash every request passes.
func RequireAdmin(adminKeyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := GetCaller(c)
		if !rc.Anonymous && rc.Role == domain.RoleAdmin {
			c.Next()
			return
		}
		if key := c.GetHeader("X-Admin-Key"); key != "" && adminKeyHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)) == nil {
				c.Set(callerKey, domain.RequestContext{UserID: rc.UserID, Role: domain.RoleAdmin})
				c.Next()
				return
			}
		}
		if rc.Anonymous && adminKeyHash == "" {
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, "admin access required")
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  false,
		"message": message,
		"code":    status,
	})
}
