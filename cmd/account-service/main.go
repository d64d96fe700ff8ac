package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-account-service/internal/config"
	"github.com/pribylovaa/go-account-service/internal/denylist"
	apihttp "github.com/pribylovaa/go-account-service/internal/http"
	"github.com/pribylovaa/go-account-service/internal/http/handlers"
	"github.com/pribylovaa/go-account-service/internal/ratelimit"
	"github.com/pribylovaa/go-account-service/internal/service"
	"github.com/pribylovaa/go-account-service/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("postgres_connected")

	// Denylist отозванных refresh-токенов.
	dl, err := denylist.NewRedis(cfg.Redis.RedisURL, "")
	if err != nil {
		log.Error("redis_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		str.Close()
		os.Exit(1)
	}
	log.Info("redis_connected")

	// Лимитер логина — вспомогательный, его отказ не фатален.
	limiter, err := ratelimit.NewRedis(cfg.Redis.RedisURL, "ratelimit:login:",
		cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	if err != nil {
		log.Warn("rate_limiter_disabled", slog.String("err", err.Error()))
		limiter = nil
	}

	// Сервис.
	srvc := service.New(str, dl, cfg.Auth)
	log.Info("service_initialized")

	h := handlers.New(srvc, str, dl, handlers.Config{
		ProjectName:    cfg.Project,
		CookiePath:     cfg.HTTP.BasePath + "/auth",
		CookieSecure:   cfg.Env != envLocal,
		RefreshTTL:     cfg.Auth.RefreshTokenTTL,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		EnforceCSRF:    cfg.Env != envLocal,
	})

	apiHandler := apihttp.NewRouter(h, apihttp.Options{
		Logger:       log,
		Timeout:      cfg.Timeouts.Service,
		BasePath:     cfg.HTTP.BasePath,
		LoginLimiter: limiter,
	})

	var ready int32 // 0 — not ready; 1 — ready

	// Служебный сервер: livez/healthz/metrics.
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	opsMux.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ops_listen_start", "addr", cfg.Ops.Addr())
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops_serve_failed", slog.String("err", err.Error()))
		}
	}()

	// Публичный API-сервер.
	apiSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", cfg.HTTP.Addr()))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
	}
	_ = opsSrv.Shutdown(shutdownCtx)

	// Явная очистка перед выходом.
	shutdownCancel()
	rootCancel()

	if limiter != nil {
		_ = limiter.Close()
	}
	_ = dl.Close()
	str.Close()

	log.Info("service_stopped")
	os.Exit(0)
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
