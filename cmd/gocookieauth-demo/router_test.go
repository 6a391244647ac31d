package main

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := goCookieAuth.New().
		WithRedis(rdb).
		WithIdentityProvider(demoUsers).
		WithEnvLookup(func(string) (string, bool) { return "demo-router-secret-0123456789abcdefghij", true }).
		WithMetricsEnabled(true).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewTLSServer(newRouter(engine))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	client := srv.Client()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client.Jar = jar
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return client
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.Post(target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, client *http.Client, target, accept string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLoginThenMe(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t, srv)

	resp := postForm(t, client, srv.URL+"/login", url.Values{"user_id": {"alice"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, client, srv.URL+"/me", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postForm(t, client, srv.URL+"/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = get(t, client, srv.URL+"/me", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t, srv)

	require.Equal(t, http.StatusBadRequest, postForm(t, client, srv.URL+"/login", nil).StatusCode)
	require.Equal(t, http.StatusUnauthorized, postForm(t, client, srv.URL+"/login", url.Values{"user_id": {"mallory"}}).StatusCode)
}

func TestBrowserIsRedirectedToLogin(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t, srv)

	resp := get(t, client, srv.URL+"/me", "text/html")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login?return_to=%2Fme", resp.Header.Get("Location"))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t, srv)

	require.Equal(t, http.StatusOK, get(t, client, srv.URL+"/healthz", "").StatusCode)
	postForm(t, client, srv.URL+"/login", url.Values{"user_id": {"bob"}})

	resp := get(t, client, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "gocookieauth_login_success_total 1")
}
