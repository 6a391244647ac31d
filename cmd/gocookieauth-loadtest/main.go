// Command gocookieauth-loadtest measures Authenticate throughput and shows
// how concurrent renewals of one session resolve through the store's
// compare-and-swap.
//
// Phase one authenticates with live access tokens. Phase two moves the
// clock past access expiry and fires -burst simultaneous requests per
// session, all carrying the same stale pair.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

type clock struct{ offset atomic.Int64 }

func (c *clock) now() time.Time { return time.Now().Add(time.Duration(c.offset.Load())) }

func (c *clock) advance(d time.Duration) { c.offset.Add(int64(d)) }

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "sessions to open")
		concurrency = flag.Int("concurrency", 128, "workers for the authenticate phase")
		ops         = flag.Int("ops", 100000, "requests in the authenticate phase")
		burst       = flag.Int("burst", 8, "simultaneous renewals per session")
		redisAddr   = flag.String("redis-addr", "", "redis address; REDIS_ADDR or miniredis when empty")
		policy      = flag.String("conflict-policy", string(goCookieAuth.ConflictAuthenticate), "authenticate or reject")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *burst <= 0 {
		logger.Fatal().Msg("sessions, concurrency, ops and burst must be > 0")
	}

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer cleanup()

	clk := &clock{}
	cfg := goCookieAuth.DefaultConfig()
	cfg.Session.RedisPrefix = "gca:loadtest"
	cfg.Renewal.ConflictPolicy = goCookieAuth.ConflictPolicy(*policy)

	secret := func(string) (string, bool) { return "loadtest-signing-secret-0123456789abcdef", true }
	engine, err := goCookieAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithEnvLookup(secret).
		WithClock(clk.now).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	ctx := context.Background()
	jars := make([][]*http.Cookie, *sessions)
	seedStart := time.Now()
	for i := range jars {
		rec := httptest.NewRecorder()
		id := fmt.Sprintf("user-%d", i)
		if _, err := engine.Login(ctx, rec, id, id+"@example.com", "member"); err != nil {
			logger.Fatal().Err(err).Msg("login")
		}
		jars[i] = rec.Result().Cookies()
	}
	logger.Info().Int("sessions", *sessions).Dur("took", time.Since(seedStart)).Msg("seeded")

	auth := runAuthenticatePhase(engine, jars, *ops, *concurrency)

	clk.advance(time.Duration(cfg.Access.ExpirationMinutes+1) * time.Minute)
	renew := runRenewalPhase(engine, jars, *burst)

	fmt.Println("---- results ----")
	printStats("authenticate", auth)
	printStats("renewal", renew.phaseStats)
	fmt.Printf("renewal outcomes: renewed=%d conflict=%d fallback=%d rejected=%d errors=%d\n",
		renew.renewed, renew.conflict, renew.fallback, renew.rejected, renew.failures)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("engine counters: renewal_success=%d renewal_conflict=%d store_error=%d\n",
		snapshot.Counters[goCookieAuth.MetricRenewalSuccess],
		snapshot.Counters[goCookieAuth.MetricRenewalConflict],
		snapshot.Counters[goCookieAuth.MetricStoreError])
}

func openRedis(addr string, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info().Str("redis", addr).Msg("using redis")
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info().Str("redis", mr.Addr()).Msg("using miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func request(jar []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range jar {
		r.AddCookie(c)
	}
	return r
}

func runAuthenticatePhase(engine *goCookieAuth.Engine, jars [][]*http.Cookie, ops, concurrency int) phaseStats {
	var (
		wg       sync.WaitGroup
		cursor   atomic.Int64
		failures atomic.Int64
		mu       sync.Mutex
		samples  = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for cursor.Add(1) <= int64(ops) {
				r := request(jars[rng.Intn(len(jars))])
				t0 := time.Now()
				res, err := engine.Authenticate(httptest.NewRecorder(), r)
				local = append(local, time.Since(t0))
				if err != nil || !res.Authenticated() {
					failures.Add(1)
				}
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), samples, failures.Load())
}

type renewalStats struct {
	phaseStats
	renewed, conflict, fallback, rejected, failures int64
}

func runRenewalPhase(engine *goCookieAuth.Engine, jars [][]*http.Cookie, burst int) renewalStats {
	var (
		out     renewalStats
		wg      sync.WaitGroup
		mu      sync.Mutex
		samples = make([]time.Duration, 0, len(jars)*burst)
		counts  [5]atomic.Int64
	)

	start := time.Now()
	for _, jar := range jars {
		gate := make(chan struct{})
		for i := 0; i < burst; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r := request(jar)
				<-gate
				t0 := time.Now()
				res, err := engine.Authenticate(httptest.NewRecorder(), r)
				d := time.Since(t0)

				switch {
				case err != nil:
					counts[4].Add(1)
				case !res.Authenticated():
					counts[3].Add(1)
				case res.Fallback:
					counts[2].Add(1)
				case res.Conflict:
					counts[1].Add(1)
				case res.Renewed:
					counts[0].Add(1)
				}
				mu.Lock()
				samples = append(samples, d)
				mu.Unlock()
			}()
		}
		close(gate)
	}
	wg.Wait()

	out.phaseStats = computeStats(time.Since(start), samples, counts[4].Load()+counts[3].Load())
	out.renewed = counts[0].Load()
	out.conflict = counts[1].Load()
	out.fallback = counts[2].Load()
	out.rejected = counts[3].Load()
	out.failures = counts[4].Load()
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
