package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cinewatch/server/pkg/ctxlogger"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
		)
		next.ServeHTTP(w, r)
	})
}

// authMw resolves the bearer credential and stores the identity in the
// request context. Requests without a valid credential never reach the
// handlers.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || credential == "" {
			c.writeError(w, http.StatusUnauthorized, "no token provided")
			return
		}

		id, err := c.resolver.Resolve(r.Context(), credential)
		if err != nil {
			c.logger.DebugContext(r.Context(), "failed to resolve identity", "error", err)
			c.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, id)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("user_id", id.Id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
