package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"enrollment-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userContextKey = "auth.user"
	tokenCookie    = "token"
)

// Claims is the token payload issued by the auth service.
type Claims struct {
	ID    uint64 `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type unauthorized struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == 0 {
		return nil, errors.New("invalid token payload")
	}
	return claims, nil
}

// AuthMiddleware authenticates the request from a bearer header or the token
// cookie and stores the caller on the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized{Message: "missing token"})
			return
		}
		claims, err := parseToken(raw, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized{Message: "invalid or expired token"})
			return
		}
		c.Set(userContextKey, services.Requester{ID: claims.ID, Role: services.Role(claims.Role)})
		c.Next()
	}
}

// RequireRole admits only callers holding one of roles.
func RequireRole(roles ...services.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized{Message: "missing token"})
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, unauthorized{Message: "insufficient role"})
	}
}

func currentUser(c *gin.Context) (services.Requester, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return services.Requester{}, false
	}
	u, ok := v.(services.Requester)
	return u, ok
}
