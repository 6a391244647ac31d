package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

type fakeSource struct {
	snapshot goCookieAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goCookieAuth.MetricsSnapshot { return f.snapshot }

func (f fakeSource) AuditDropped() uint64 { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{snapshot: goCookieAuth.MetricsSnapshot{
		Counters:   map[goCookieAuth.MetricID]uint64{},
		Histograms: map[goCookieAuth.MetricID][]uint64{},
	}})
	require.Empty(t, exp.Render())
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: goCookieAuth.MetricsSnapshot{
			Counters: map[goCookieAuth.MetricID]uint64{
				goCookieAuth.MetricRenewalSuccess: 7,
			},
			Histograms: map[goCookieAuth.MetricID][]uint64{
				goCookieAuth.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	require.Contains(t, out, "# TYPE gocookieauth_renewal_success_total counter\n")
	require.Contains(t, out, "gocookieauth_renewal_success_total 7\n")
	require.Contains(t, out, "gocookieauth_login_success_total 0\n")
	require.Contains(t, out, `gocookieauth_authenticate_latency_seconds_bucket{le="0.005"} 1`)
	require.Contains(t, out, `gocookieauth_authenticate_latency_seconds_bucket{le="+Inf"} 36`)
	require.Contains(t, out, "gocookieauth_authenticate_latency_seconds_count 36\n")
	require.Contains(t, out, "gocookieauth_audit_dropped_total 2\n")
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	secret := func(string) (string, bool) { return "prometheus-test-secret-0123456789abcdef", true }
	engine, err := goCookieAuth.New().
		WithRedis(rdb).
		WithEnvLookup(secret).
		WithMetricsEnabled(true).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	_, err = engine.Login(context.Background(), httptest.NewRecorder(), "u1", "a@b.com", "Lead")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	New(engine).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "gocookieauth_login_success_total 1\n")
}

func BenchmarkRender(b *testing.B) {
	exp := New(fakeSource{
		snapshot: goCookieAuth.MetricsSnapshot{
			Counters: map[goCookieAuth.MetricID]uint64{
				goCookieAuth.MetricLoginSuccess:         1000,
				goCookieAuth.MetricAuthenticateSuccess:  90000,
				goCookieAuth.MetricAuthenticateRejected: 400,
				goCookieAuth.MetricRenewalSuccess:       800,
			},
			Histograms: map[goCookieAuth.MetricID][]uint64{
				goCookieAuth.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
