package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Context keys set by AuthMiddleware.
const (
	ContextRestaurantID = "restaurant_id"
	ContextRole         = "role"
)

// AuthMiddleware verifies the device token and scopes the request to its restaurant.
// Browsers cannot set headers on websocket upgrades, so ?token= is accepted too.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization token missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		c.Set(ContextRestaurantID, claims.RestaurantID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RestaurantID returns the restaurant the request is scoped to.
func RestaurantID(c *gin.Context) uint {
	return c.GetUint(ContextRestaurantID)
}
