package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes adds booking attributes to the transaction started by
// nrgin, so traces can be filtered by customer and booking.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}
		if customerID := CustomerID(c); customerID != "" {
			txn.AddAttribute("customer_id", customerID)
		}
		if bookingID := c.Param("id"); bookingID != "" {
			txn.AddAttribute("booking_id", bookingID)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
