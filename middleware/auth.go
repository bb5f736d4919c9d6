package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ehson1111/chocoberry-bot/common/logger"
	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserContextKey = "userID"

	HeaderUserID    = "X-User-ID"
	HeaderUsername  = "X-User-Username"
	HeaderFirstName = "X-User-First-Name"
	HeaderLastName  = "X-User-Last-Name"
)

// AuthMiddleware trusts the chat gateway in front of the service to put the
// Telegram user id in X-User-ID.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user ID format"})
			return
		}

		c.Set(UserContextKey, userID)
		c.Next()
	}
}

// RegisterUser records the caller on first contact. It must run after
// AuthMiddleware. A failed registration is logged and the request continues.
func RegisterUser(profiles services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.Next()
			return
		}

		user := &models.User{
			TelegramID: userID,
			Username:   c.GetHeader(HeaderUsername),
			FirstName:  c.GetHeader(HeaderFirstName),
			LastName:   c.GetHeader(HeaderLastName),
		}
		if err := profiles.Register(c.Request.Context(), user); err != nil {
			logger.Error(c.Request.Context(), "user registration failed", err, zap.Int64("user_id", userID))
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(int64); ok {
			return id, nil
		}
	}
	return 0, errors.New("user ID not found in context")
}

// RateLimitKey keys the limiter by user, falling back to the client IP.
func RateLimitKey(c *gin.Context) string {
	if id, err := GetUserID(c); err == nil {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return ""
}
