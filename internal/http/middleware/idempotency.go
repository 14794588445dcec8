package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"
	maxStoredBody     = 256 << 10
	lockTTL           = 30 * time.Second
)

// captureWriter keeps a copy of the body while forwarding it to the client.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.buf.Len() < maxStoredBody {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	if w.buf.Len() < maxStoredBody {
		w.buf.WriteString(s)
	}
	return w.ResponseWriter.WriteString(s)
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyKey derives the Redis key from caller, method, route and client key, so two
// callers never share a replay.
func IdempotencyKey(actor, method, path, key string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{actor, method, path, key}, "\n")))
	return "idem:" + hex.EncodeToString(sum[:16])
}

// Idempotency replays the first non-5xx response of a POST or PATCH carrying an
// Idempotency-Key header. A nil client disables it.
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" || (c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPatch) {
			c.Next()
			return
		}
		if len(key) > 128 {
			abort(c, http.StatusBadRequest, "Idempotency-Key too long")
			return
		}
		ctx := c.Request.Context()
		redisKey := IdempotencyKey(GetCaller(c).Actor(), c.Request.Method, c.Request.URL.RequestURI(), key)

		if raw, err := rdb.Get(ctx, redisKey).Bytes(); err == nil {
			var stored storedResponse
			if json.Unmarshal(raw, &stored) == nil {
				c.Header(replayHeader, "true")
				c.Data(stored.Status, stored.ContentType, stored.Body)
				c.Abort()
				return
			}
		} else if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("request_id", GetRequestID(c)).Warn("idempotency lookup failed")
			c.Next()
			return
		}

		locked, err := rdb.SetNX(ctx, redisKey+":lock", GetRequestID(c), lockTTL).Result()
		if err != nil {
			logrus.WithError(err).WithField("request_id", GetRequestID(c)).Warn("idempotency lock failed")
			c.Next()
			return
		}
		if !locked {
			abort(c, http.StatusConflict, "a request with this Idempotency-Key is in progress")
			return
		}
		// The handler may have committed by the time the client goes away.
		storeCtx := context.WithoutCancel(ctx)
		defer rdb.Del(storeCtx, redisKey+":lock")

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status >= http.StatusInternalServerError || cw.buf.Len() >= maxStoredBody {
			return
		}
		raw, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: cw.Header().Get("Content-Type"),
			Body:        cw.buf.Bytes(),
		})
		if err != nil {
			return
		}
		if err := rdb.Set(storeCtx, redisKey, raw, ttl).Err(); err != nil {
			logrus.WithError(err).WithField("request_id", GetRequestID(c)).Warn("idempotency store failed")
		}
	}
}
