// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"design-market/internal/config"
	"design-market/internal/domain/ports/adapter"
	"design-market/internal/domain/ports/repository"
	notifyAdapters "design-market/internal/infra/adapters/notify"
	payAdapters "design-market/internal/infra/adapters/payment"
	pg "design-market/internal/infra/db/postgres"
	"design-market/internal/infra/logging"
	"design-market/internal/infra/metrics"
	red "design-market/internal/infra/redis"
	"design-market/internal/infra/sched"
	"design-market/internal/infra/web"
	"design-market/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	callbackRepo := pg.NewCallbackRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	anomalyRepo := pg.NewAnomalyRepo(pool)
	reminderLogRepo := pg.NewReminderLogRepo(pool)
	tm := pg.NewTxManager(pool)

	var products repository.ProductRepository = pg.NewProductRepo(pool)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		products = pg.NewProductRepoCacheDecorator(products, redisClient, cfg.Redis.TTL)
	}

	// ---- Adapters ----
	notifier := notifyAdapters.NewLogNotifier(logger)

	var providers []adapter.PaymentProvider
	if cfg.Payment.WeChat.APIKey != "" {
		wp, err := payAdapters.NewWeChatProvider(cfg.Payment.WeChat.AppID, cfg.Payment.WeChat.MchID, cfg.Payment.WeChat.APIKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("wechat provider")
		}
		providers = append(providers, wp)
	}
	if cfg.Payment.Alipay.Secret != "" {
		ap, err := payAdapters.NewAlipayProvider(cfg.Payment.Alipay.AppID, cfg.Payment.Alipay.Secret)
		if err != nil {
			logger.Fatal().Err(err).Msg("alipay provider")
		}
		providers = append(providers, ap)
	}
	if cfg.Runtime.Dev {
		providers = append(providers, payAdapters.NewNoopProvider())
	}
	if len(providers) == 0 {
		logger.Fatal().Msg("no payment provider configured")
	}

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, tm, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, products, ledgerUC, tm, logger)
	callbackUC := usecase.NewCallbackUseCase(orderRepo, products, userRepo, callbackRepo, anomalyRepo, ledgerUC, tm, notifier, logger)
	productUC := usecase.NewProductUseCase(products, logger)
	anomalyUC := usecase.NewAnomalyUseCase(anomalyRepo, logger)
	reminderUC := usecase.NewReminderUseCase(userRepo, reminderLogRepo, notifier,
		cfg.Scheduler.ReminderThresholdsDays, cfg.Scheduler.WinbackDays, logger)

	// ---- Scheduler workers ----
	timeoutWorker := sched.NewTimeoutWorker(cfg.Scheduler.TimeoutSweepInterval,
		time.Duration(cfg.Order.TimeoutMinutes)*time.Minute, orderRepo, logger)
	expiryWorker := sched.NewVIPExpiryWorker(cfg.Scheduler.DailyHour, userRepo, logger)
	reminderWorker := sched.NewReminderWorker(cfg.Scheduler.DailyHour, reminderUC, logger)
	reconciler := sched.NewReconciler(cfg.Scheduler.ReconcileInterval, orderRepo, callbackRepo, anomalyRepo, logger)

	go func() { _ = timeoutWorker.Run(ctx) }()
	go func() { _ = expiryWorker.Run(ctx) }()
	go func() { _ = reminderWorker.Run(ctx) }()
	go func() { _ = reconciler.Run(ctx) }()

	// ---- HTTP servers ----
	server := web.NewServer(orderUC, ledgerUC, callbackUC, productUC, anomalyUC, providers, cfg.Admin.APIKey, logger)
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Web.Port).Msg("api server listening")
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
			cancel()
		}
	}()

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	adminSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           adminMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin server listening")
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
}
