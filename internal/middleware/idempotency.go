package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// storedReply is what a retried request gets back instead of running again.
type storedReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// replyRecorder tees the handler's body so it can be stored after the fact.
type replyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *replyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *replyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware answers a retried booking mutation carrying a known
// Idempotency-Key with the reply of the first attempt. Replies are kept per
// customer, method and path. Redis failures degrade to running the handler.
func IdempotencyMiddleware(redisClient redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(idempotencyHeader)
		if redisClient == nil || token == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := idempotencyKey(c.GetHeader(CustomerIDHeader), c.Request.Method, c.Request.URL.Path, token)
		if reply, ok := loadReply(c.Request.Context(), redisClient, key); ok {
			writeReply(c, reply)
			return
		}

		rec := &replyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if !storable(status) {
			return
		}
		reply := storedReply{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}
		_ = saveReply(context.WithoutCancel(c.Request.Context()), redisClient, key, reply)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// storable keeps 5xx replies out so the client may retry them.
func storable(status int) bool {
	return status >= http.StatusOK && status < http.StatusInternalServerError
}

func idempotencyKey(customerID, method, path, token string) string {
	return fmt.Sprintf("idempotency:%s:%s:%s:%s", customerID, method, path, token)
}

func writeReply(c *gin.Context, reply storedReply) {
	contentType := reply.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(reply.Status, contentType, reply.Body)
	c.Abort()
}

func loadReply(ctx context.Context, client redis.UniversalClient, key string) (storedReply, bool) {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return storedReply{}, false
	}
	return decodeReply(raw)
}

func decodeReply(raw []byte) (storedReply, bool) {
	var reply storedReply
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Status == 0 {
		return storedReply{}, false
	}
	return reply, true
}

func saveReply(ctx context.Context, client redis.UniversalClient, key string, reply storedReply) error {
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, idempotencyTTL).Err()
}
