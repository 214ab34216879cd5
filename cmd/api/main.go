package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"

	"voicedesk-platform/internal/ai"
	"voicedesk-platform/internal/audit"
	"voicedesk-platform/internal/call"
	"voicedesk-platform/internal/config"
	"voicedesk-platform/internal/greeting"
	"voicedesk-platform/internal/httpapi"
	"voicedesk-platform/internal/intake"
	"voicedesk-platform/internal/notify"
	"voicedesk-platform/internal/recording"
	"voicedesk-platform/internal/storage"
	"voicedesk-platform/internal/telephony"
	"voicedesk-platform/internal/tenant"
	"voicedesk-platform/pkg/logger"
	"voicedesk-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience; production injects env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	tenants := tenant.NewPostgresRepo(db)
	calls := call.NewPostgresRepo(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	twilio := telephony.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	openai := ai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, cfg.OpenAI.TranscribeModel, cfg.OpenAI.RequestTimeout)
	store := storage.NewSupabaseStore(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)

	intakeSvc := intake.NewService(
		tenant.NewResolver(tenants),
		calls,
		greeting.Resolver{BaseURL: cfg.App.BaseURL},
		auditSvc,
		cfg.App.BaseURL,
		cfg.Voicemail.MaxRecordingSeconds,
	)
	dispatcher := notify.NewDispatcher(calls, twilio, notify.NewRedisGuard(rdb), auditSvc)
	processor := recording.NewProcessor(calls, twilio, twilio, openai, openai, openai, dispatcher, auditSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, db, &httpapi.Handlers{
		Intake:     intakeSvc,
		Recordings: processor,
		Tenants:    tenants,
		Calls:      calls,
		Store:      store,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
