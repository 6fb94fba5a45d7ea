package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// accessLog feeds chi's RequestLogger into zap, one line per request.
type accessLog struct {
	log *zap.Logger
}

func (a accessLog) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessEntry{log: a.log.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
	)}
}

type accessEntry struct {
	log *zap.Logger
}

func (e *accessEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{zap.Int("status", status), zap.Int("bytes", bytes), zap.Duration("elapsed", elapsed)}
	if status >= http.StatusInternalServerError {
		e.log.Warn("http request", fields...)
		return
	}
	e.log.Info("http request", fields...)
}

func (e *accessEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("http handler panic", zap.Any("panic", v), zap.ByteString("stack", stack))
}
