// Command gocookieauth-demo serves a small site protected by cookie
// sessions. Without -redis-addr it runs against an in-process miniredis.
//
//	curl -i -c jar -X POST -d user_id=alice localhost:8080/login
//	curl -i -b jar -c jar localhost:8080/me
//	curl -i -b jar -c jar -X POST localhost:8080/logout
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		configPath = flag.String("config", "", "YAML, TOML or JSON config file; defaults plus GOCOOKIEAUTH_* env when empty")
		redisAddr  = flag.String("redis-addr", "", "redis address; miniredis when empty")
		debug      = flag.Bool("debug", false, "log at debug level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Err(err).Msg("no .env file, using process environment")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.Audit.Enabled = true
	ensureDevKeys(cfg)

	rdb, closeRedis, err := openRedis(*redisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("open redis")
	}
	defer closeRedis()

	engine, err := goCookieAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityProvider(demoUsers).
		WithLogger(log.Logger).
		WithAuditSink(goCookieAuth.NewLoggerSink(log.Logger)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newRouter(engine),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

func loadConfig(path string) (goCookieAuth.Config, error) {
	if path == "" {
		return goCookieAuth.LoadConfig(nil)
	}
	return goCookieAuth.LoadConfigFile(path)
}

// ensureDevKeys fills missing symmetric signing keys with random ones so the
// demo starts on a bare machine. Sessions do not survive a restart then.
func ensureDevKeys(cfg goCookieAuth.Config) {
	for _, name := range []string{cfg.Access.SigningKey, cfg.Refresh.SigningKey} {
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal().Err(err).Msg("generate signing key")
		}
		_ = os.Setenv(name, base64.RawURLEncoding.EncodeToString(buf))
		log.Warn().Str("env", name).Msg("signing key not set, generated an ephemeral one")
	}
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		log.Info().Str("redis", addr).Msg("using redis")
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	log.Info().Str("redis", mr.Addr()).Msg("using miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
