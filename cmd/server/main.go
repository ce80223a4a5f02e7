package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"roster/internal/audit"
	"roster/internal/directory/coordinator"
	"roster/internal/directory/handler"
	"roster/internal/directory/idp"
	"roster/internal/directory/metrics"
	"roster/internal/directory/models"
	"roster/internal/directory/store/parent"
	"roster/internal/directory/store/student"
	"roster/internal/directory/store/teacher"
	"roster/internal/ledger"
	"roster/internal/platform/config"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/logger"
	"roster/internal/platform/middleware"
	platformredis "roster/internal/platform/redis"
)

// main wires dependencies and owns the process lifecycle. Business rules
// live in the coordinator; anything optional (redis, kafka) degrades to
// an in-memory stand-in so a bare dev environment still boots.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var ledgerStore ledger.Store
	if redisClient != nil {
		defer redisClient.Close()
		ledgerStore = ledger.NewRedisStore(redisClient.Client)
	} else {
		log.Warn("redis not configured, inconsistency ledger is in-memory")
		ledgerStore = ledger.NewMemoryStore()
	}

	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("kafka not configured, audit events stay in-memory")
		sink = audit.NewMemorySink()
	}
	publisher := audit.NewPublisher(sink, audit.WithAsyncBuffer(256), audit.WithLogger(log))
	defer publisher.Close()

	minter := idp.NewTokenMinter(cfg.IdP.SigningKey, cfg.IdP.Issuer, cfg.IdP.Audience)
	var provider coordinator.IdentityProvider
	if cfg.IdP.BaseURL != "" {
		provider = idp.NewHTTPClient(cfg.IdP.BaseURL, minter)
	} else {
		log.Warn("identity provider not configured, using in-process fake")
		provider = idp.NewFakeProvider()
	}

	m := metrics.New()
	opts := []coordinator.Option{
		coordinator.WithLogger(log),
		coordinator.WithMetrics(m),
		coordinator.WithAuditPublisher(publisher),
		coordinator.WithLedger(ledgerStore),
	}
	teachers := coordinator.New[models.TeacherCommand](models.RoleTeacher, provider, teacher.NewPostgres(db), opts...)
	parents := coordinator.New[models.ParentCommand](models.RoleParent, provider, parent.NewPostgres(db), opts...)
	students := coordinator.New[models.StudentCommand](models.RoleStudent, provider, student.NewPostgres(db), opts...)

	h := handler.New(teachers, parents, students, ledgerStore, log)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.AdminToken, log))
		h.Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting roster server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
