package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// memoryHook answers commands in process and records the context state each one ran with.
type memoryHook struct {
	mu      sync.Mutex
	ctxErrs map[string]error
}

func (h *memoryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *memoryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		h.ctxErrs[cmd.Name()] = ctx.Err()
		h.mu.Unlock()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			c.SetErr(redis.Nil)
			return redis.Nil
		case *redis.BoolCmd:
			c.SetVal(true)
		case *redis.IntCmd:
			c.SetVal(1)
		case *redis.StatusCmd:
			c.SetVal("OK")
		}
		return nil
	}
}

func (h *memoryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestIdempotencyStoresAfterClientCancels(t *testing.T) {
	hook := &memoryHook{ctxErrs: map[string]error{}}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	rdb.AddHook(hook)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.POST("/x", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		cancel()
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/x", nil).WithContext(ctx)
	req.Header.Set(idempotencyHeader, "k1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	hook.mu.Lock()
	defer hook.mu.Unlock()
	for _, name := range []string{"set", "del"} {
		err, ok := hook.ctxErrs[name]
		if !ok {
			t.Fatalf("expected %s to be issued, got %v", name, hook.ctxErrs)
		}
		if err != nil {
			t.Fatalf("expected %s to run with a live context, got %v", name, err)
		}
	}
}
