package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/infrastructure/storage/postgres"
	"compras/pkg/logger"
)

const (
	HeaderIdempotencyKey    = "X-Idempotency-Key"
	maxIdempotencyBodyBytes = 1 << 20
)

// IdempotencyStore claims and completes idempotency keys.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, key string) error
}

// recorder keeps a copy of what the handler writes.
type recorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request repeated with the
// same X-Idempotency-Key. Requests without the header pass through. Only
// responses the handler wrote itself are stored; errors release the key so
// the client can retry.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("corpo da requisição ilegível").WithCause(err))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("corpo grande demais para idempotência").
				WithDetail("max_bytes", maxIdempotencyBodyBytes)
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)

		replay, err := store.AcquireKey(ctx, key, appctx.GetUserID(ctx),
			c.Request.Method+" "+c.FullPath(), hex.EncodeToString(sum[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		done := appctx.Detached(ctx)
		status := rec.Status()
		if len(c.Errors) > 0 || !rec.Written() || status >= http.StatusInternalServerError {
			if err := store.ReleaseKey(done, key); err != nil {
				logger.Warn(ctx, "idempotency key not released", "key", key, "error", err)
			}
			return
		}
		if err := store.CompleteKey(done, key, status, rec.Header().Get("Content-Type"), rec.body.Bytes()); err != nil {
			logger.Warn(ctx, "idempotency key not completed", "key", key, "error", err)
		}
	}
}
