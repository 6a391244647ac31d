package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
	"github.com/MrEthical07/goCookieAuth/metrics/export/prometheus"
	"github.com/MrEthical07/goCookieAuth/middleware"
)

var demoUsers = goCookieAuth.IdentityProviderFunc(func(_ context.Context, userID string) (*goCookieAuth.Identity, error) {
	switch userID {
	case "alice":
		return &goCookieAuth.Identity{UserID: "alice", Email: "alice@example.com", Role: "admin", Name: "Alice"}, nil
	case "bob":
		return &goCookieAuth.Identity{UserID: "bob", Email: "bob@example.com", Role: "member", Name: "Bob"}, nil
	default:
		return nil, nil
	}
})

func newRouter(engine *goCookieAuth.Engine) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(clientContext)

	r.Post("/login", loginHandler(engine))
	r.Post("/logout", logoutHandler(engine))
	r.Get("/healthz", healthHandler(engine))
	r.Handle("/metrics", prometheus.New(engine).Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(engine, middleware.Options{LoginURL: "/login"}))
		r.Get("/me", meHandler)
	})
	return r
}

// requestLogger puts a request scoped zerolog logger in the context and logs
// each completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := log.With().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("remote_ip", remoteIP(r)).
			Str("method", r.Method).
			Str("url", r.RequestURI).
			Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		l.Info().
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// clientContext tags the request context so audit events carry the caller.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goCookieAuth.WithClientIP(r.Context(), remoteIP(r))
		ctx = goCookieAuth.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func loginHandler(engine *goCookieAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.FormValue("user_id")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
			return
		}

		res, err := engine.LoginUser(r.Context(), w, userID)
		switch {
		case errors.Is(err, goCookieAuth.ErrUserNotFound):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown user"})
			return
		case errors.Is(err, goCookieAuth.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session store unavailable"})
			return
		case err != nil:
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("login")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"user_id":    res.Claims.UserID,
			"session_id": res.Claims.SessionID,
		})
	}
}

func logoutHandler(engine *goCookieAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Logout(r.Context(), w, r); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("logout")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func healthHandler(engine *goCookieAuth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latency, err := engine.Ping(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"redis": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"redis": "up", "latency": latency.String()})
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    res.Claims.UserID,
		"email":      res.Claims.UserEmail,
		"role":       res.Claims.UserRole,
		"session_id": res.Claims.SessionID,
		"renewed":    res.Renewed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
