package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result Guard attached to ctx.
func AuthResultFromContext(ctx context.Context) (*goCookieAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goCookieAuth.AuthResult)
	return res, ok
}

// Authenticator is the part of *goCookieAuth.Engine that Guard needs.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (*goCookieAuth.AuthResult, error)
}

// Options tunes Guard.
//
// LoginURL is where browser requests (Accept contains text/html) are sent
// when unauthenticated; the original path is appended as ReturnParam. With
// an empty LoginURL every rejection is a 401.
type Options struct {
	LoginURL    string
	ReturnParam string
}

// Guard authenticates every request through auth. Authenticated requests
// continue with the AuthResult in their context. Rejections get a 401 or a
// redirect after the engine has cleared stale cookies. A store outage is a
// 503 and any other hard failure a 500.
func Guard(auth Authenticator, opts Options) func(http.Handler) http.Handler {
	if opts.ReturnParam == "" {
		opts.ReturnParam = "return_to"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := auth.Authenticate(w, r)
			switch {
			case errors.Is(err, goCookieAuth.ErrStoreUnavailable):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			case err != nil:
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			case !res.Authenticated():
				reject(w, r, opts)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, opts Options) {
	if opts.LoginURL == "" || !wantsHTML(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	target, err := url.Parse(opts.LoginURL)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	q := target.Query()
	q.Set(opts.ReturnParam, r.URL.RequestURI())
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
