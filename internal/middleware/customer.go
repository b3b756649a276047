package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// CustomerIDHeader carries the authenticated customer's id, set by the
	// gateway in front of this service.
	CustomerIDHeader = "X-Customer-ID"

	customerIDKey = "customerID"
)

// RequireCustomer rejects requests without a customer id and stores it on
// the context for handlers.
func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := strings.TrimSpace(c.GetHeader(CustomerIDHeader))
		if customerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + CustomerIDHeader + " header"})
			return
		}
		c.Set(customerIDKey, customerID)
		c.Next()
	}
}

// CustomerID returns the customer id stored by RequireCustomer.
func CustomerID(c *gin.Context) string {
	return c.GetString(customerIDKey)
}
