package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes bounds a webhook delivery
const DefaultMaxBodyBytes int64 = 64 << 10

// BodyLimit rejects requests whose declared length exceeds maxBytes and caps
// the body reader for chunked requests. Handlers see a *http.MaxBytesError
// when a streamed body crosses the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortPayloadTooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// AbortPayloadTooLarge answers 413 in the webhook error shape
func AbortPayloadTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error":   "Payload too large",
	})
}

// IsBodyTooLarge reports whether err came from a capped body reader
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
