package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/config"
	"github.com/pribylovaa/propertia-auth/internal/portal"
	"github.com/pribylovaa/propertia-auth/pkg/authclient"
	"github.com/pribylovaa/propertia-auth/pkg/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath, app string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&app, "app", "", "application name (public, admin, panel); overrides config")
	flag.Parse()

	cfg := config.MustLoadPortal(configPath)
	if app != "" {
		cfg.App = app
	}

	base := setupLogger(cfg.Env)
	log := base.With(slog.String("app", cfg.App))
	slog.SetDefault(log)
	log.Info("starting portal", "env", cfg.Env, "admin_app", cfg.AdminApp)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	store, closeStore, err := sessionStore(rootCtx, cfg.Store)
	if err != nil {
		log.Error("session_store_init_failed", slog.String("backend", cfg.Store.Backend), slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	client := authclient.New(cfg.AuthURL, cfg.RequestTimeout)

	mgr := session.NewManager(client, store, session.Options{
		App:            cfg.App,
		AdminApp:       cfg.AdminApp,
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         base,
	})
	mgr.OnInvalidated(func(reason session.InvalidationReason) {
		log.Info("session_invalidated", slog.String("reason", string(reason)))
	})

	if _, err := mgr.Start(rootCtx, ""); err != nil {
		log.Warn("session_start_failed", slog.String("err", err.Error()))
	}
	log.Info("session_restored", slog.Bool("authenticated", mgr.Current().Authenticated))

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		mgr.Run(rootCtx)
	}()

	var ready int32

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	mux.Handle("/", portal.NewRouter(mgr, client, portal.Options{
		Logger:         log,
		AdminApp:       cfg.AdminApp,
		HandoffTargets: cfg.HandoffTargets,
	}))

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", addr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	}

	// Сначала дожидаемся выхода Run, затем проверки, которая ещё в полёте:
	// она доживает до своего таймаута.
	rootCancel()
	<-pollDone
	mgr.Poller().Wait()

	log.Info("portal_stopped")
}

// sessionStore открывает хранилище сессии по store.backend.
func sessionStore(ctx context.Context, cfg config.SessionStoreConfig) (session.Store, func(), error) {
	switch cfg.Backend {
	case config.SessionStoreRedis:
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), func() {}, nil
	default:
		return session.NewFileStore(cfg.Path), func() {}, nil
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
