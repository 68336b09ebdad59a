package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/propertia-auth/internal/cache"
	"github.com/pribylovaa/propertia-auth/internal/config"
	"github.com/pribylovaa/propertia-auth/internal/db/migrate"
	authhttp "github.com/pribylovaa/propertia-auth/internal/http"
	"github.com/pribylovaa/propertia-auth/internal/metrics"
	"github.com/pribylovaa/propertia-auth/internal/notify"
	"github.com/pribylovaa/propertia-auth/internal/revocation"
	revmem "github.com/pribylovaa/propertia-auth/internal/revocation/memory"
	"github.com/pribylovaa/propertia-auth/internal/service"
	"github.com/pribylovaa/propertia-auth/internal/storage"
	usermem "github.com/pribylovaa/propertia-auth/internal/storage/memory"
	"github.com/pribylovaa/propertia-auth/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath  string
		autoMigrate bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&autoMigrate, "migrate", false, "apply database migrations before start")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting auth-service", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Пользователи: postgres, либо память вне prod (Validate это гарантирует).
	var (
		users storage.UserStorage
		pg    *postgres.Storage
	)
	if cfg.DB.DatabaseURL != "" {
		if autoMigrate {
			if err := migrate.Run(cfg.DB.DatabaseURL, "up"); err != nil {
				log.Error("migrate_failed", slog.String("err", err.Error()))
				os.Exit(1)
			}
			log.Info("migrations_applied")
		}

		dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
		str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
		dbCancel()
		if err != nil {
			log.Error("postgres_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer str.Close()

		log.Info("postgres_connected")
		pg, users = str, str
	} else {
		log.Warn("users_in_memory")
		users = usermem.New()
	}

	store, closer, err := revocationStore(cfg, pg)
	if err != nil {
		log.Error("revocation_store_init_failed",
			slog.String("backend", cfg.Revocation.Backend),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}
	if closer != nil {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				log.Warn("revocation_store_close_failed", slog.String("err", cerr.Error()))
			}
		}()
	}
	log.Info("revocation_store_ready", slog.String("backend", cfg.Revocation.Backend))

	mtr := metrics.New(prometheus.DefaultRegisterer)

	srvc := service.New(users, revocation.New(store), cfg.Auth)
	srvc.SetNotifier(newNotifier(cfg.Notify, log), cfg.Notify.WebsiteURL)
	srvc.SetMetrics(mtr)
	log.Info("service_initialized")

	apiHandler := authhttp.NewRouter(srvc, authhttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: cfg.HTTP.BasePath,
		Metrics:  mtr,
	})

	var ready int32 // 0 — not ready; 1 — ready

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

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	// Записи о естественно истёкших токенах больше не нужны.
	if pg != nil && cfg.Revocation.Backend == config.RevocationPostgres {
		startRevocationJanitor(rootCtx, pg, log, cfg.Revocation.JanitorPeriod)
	}

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr), slog.String("base_path", cfg.HTTP.BasePath))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// revocationStore выбирает хранилище отзыва по revocation.backend.
// closer не nil, если хранилище владеет собственным соединением.
func revocationStore(cfg *config.Config, pg *postgres.Storage) (revocation.Store, io.Closer, error) {
	switch cfg.Revocation.Backend {
	case config.RevocationRedis:
		rc, err := cache.NewRedisCache(cfg.Redis.RedisURL, cfg.Redis.Prefix, cfg.Revocation.DefaultTTL)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc, nil
	case config.RevocationPostgres:
		if pg == nil {
			return nil, nil, errors.New("postgres backend requires db.db_url")
		}
		return pg, nil, nil
	default:
		return revmem.New(), nil, nil
	}
}

// newNotifier — webhook, если задан адрес; иначе письма только логируются.
func newNotifier(cfg config.NotifyConfig, log *slog.Logger) notify.Notifier {
	if cfg.WebhookURL == "" {
		return notify.NewLogNotifier(log)
	}

	return notify.NewWebhookNotifier(cfg.WebhookURL, cfg.APIKey, cfg.Timeout)
}

// setupLogger настраивает slog по окружению.
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

// startRevocationJanitor периодически удаляет записи об отозванных токенах,
// чей естественный срок уже прошёл.
func startRevocationJanitor(ctx context.Context, st storage.RevocationStorage, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := st.DeleteExpiredRevocations(ctx, time.Now().UTC()); err != nil {
					log.Error("revocation_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
