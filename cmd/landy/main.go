package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/api"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/billing"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/budget"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cache"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/circuitbreaker"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/config"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/crypto"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/httputil"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/images"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/notifications"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/provider/openai"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/queue"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/ratelimit"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/secrets"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/telemetry"
)

const (
	serviceName = "landy"
	version     = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting landing page generator", "addr", cfg.Addr, "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := resolveSecrets(ctx, cfg); err != nil {
		slog.Error("failed to resolve secrets", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := telemetry.Init(ctx, serviceName, version, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	hostname, _ := os.Hostname()
	metrics.InitInstanceMetrics(hostname, version)

	pricing, err := loadPricing(cfg)
	if err != nil {
		slog.Error("failed to load pricing", "error", err)
		os.Exit(1)
	}

	var checkers []api.HealthChecker

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		checkers = append(checkers, api.NewRedisHealthChecker(redisClient))
		slog.Info("using redis for rate limits, image cache and billing dedup")
	}

	var (
		generations repository.GenerationRepository = repository.NewInMemoryGenerationRepository()
		wallets     repository.WalletRepository     = repository.NewInMemoryWalletRepository()
		tracker     cost.Tracker                    = cost.NewInMemoryTracker()
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, migrateCancel := context.WithTimeout(ctx, 30*time.Second)
		err = repository.Migrate(migrateCtx, db)
		migrateCancel()
		if err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}

		generations = repository.NewPostgresGenerationRepository(db)
		wallets = repository.NewPostgresWalletRepository(db)
		tracker = repository.NewPostgresUsageRepository(db)
		checkers = append(checkers, api.NewPostgresHealthChecker(db))
		slog.Info("using postgres storage")
	} else {
		slog.Info("using in-memory storage")
	}

	var (
		rateLimiter ratelimit.RateLimiter
		imageCache  cache.Cache
		dedup       billing.Deduplicator
	)
	if redisClient != nil {
		rateLimiter = ratelimit.NewRedisRateLimiterWithClient(redisClient)
		imageCache = cache.NewRedisCacheWithClient(redisClient)
		dedup = billing.NewRedisDeduplicatorWithClient(redisClient, 24*time.Hour)
	} else {
		rateLimiter = ratelimit.NewInMemoryRateLimiter()
		memCache := cache.NewInMemoryCache()
		defer memCache.Close()
		imageCache = memCache
		dedup = billing.NewInMemoryDeduplicator(24 * time.Hour)
	}

	provider := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if !provider.Configured() {
		slog.Warn("OPENAI_API_KEY is not set, generation requests will fail", "provider", provider.ID())
	}
	checkers = append(checkers, api.NewCredentialChecker("openai", provider.Configured))

	imageBreaker := circuitbreaker.New("unsplash", circuitbreaker.DefaultConfig())
	imageBreaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
		metrics.SetCircuitBreakerState(name, breakerGauge(to))
		slog.Warn("circuit breaker state changed", "dependency", name, "from", from.String(), "to", to.String())
	})
	metrics.SetCircuitBreakerState("unsplash", breakerGauge(circuitbreaker.StateClosed))

	unsplash := images.NewUnsplashFetcher(cfg.UnsplashAccessKey, cfg.UnsplashBaseURL,
		httputil.NewClient(httputil.LookupConfig()), slog.Default())
	imageFetcher := images.NewCachedFetcher(unsplash, imageCache, imageBreaker, cfg.ImageCacheTTL, slog.Default())

	sink, queueSink, err := buildSinks(ctx, cfg, wallets, tracker)
	if err != nil {
		slog.Error("failed to configure billing sinks", "error", err)
		os.Exit(1)
	}

	reporter := billing.NewReporter(pricing, sink,
		billing.WithDeduplicator(dedup),
		billing.WithTracker(tracker),
		billing.WithTimeout(cfg.BillingTimeout),
		billing.WithLogger(slog.Default()),
	)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if queueSink != nil && cfg.RelaysWebhook() {
		webhook, err := newWebhookSink(cfg)
		if err != nil {
			slog.Error("failed to configure billing relay", "error", err)
			os.Exit(1)
		}
		relay := billing.NewRelay(queueSink, webhook, slog.Default())
		go relay.Run(relayCtx)
		slog.Info("billing relay started", "queue", cfg.SQSQueueURL)
	}

	var creditSigner *crypto.Signer
	if cfg.WalletCreditSecret != "" {
		creditSigner, err = crypto.NewSigner(cfg.WalletCreditSecret)
		if err != nil {
			slog.Error("failed to configure wallet credits", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("wallet top-ups disabled, WALLET_CREDIT_SECRET not set")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Provider:              provider,
		Images:                imageFetcher,
		Reporter:              reporter,
		Generations:           generations,
		Wallets:               wallets,
		CreditSigner:          creditSigner,
		RateLimiter:           rateLimiter,
		GenerateRPM:           cfg.GenerateRPM,
		DefaultModel:          cfg.DefaultModel,
		IdeaModel:             cfg.IdeaModel,
		MaxGenerationDuration: cfg.MaxGenerationDuration,
		HealthCheckers:        checkers,
		Version:               version,
		Logger:                slog.Default(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.MaxGenerationDuration + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if err := reporter.Wait(shutdownCtx); err != nil {
		slog.Error("pending cost reports abandoned", "error", err)
	}
	stopRelay()
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("failed to flush traces", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "text" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	}
	slog.SetDefault(slog.New(handler))
}

// resolveSecrets replaces awssm: references in the credential settings with
// their Secrets Manager values.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	refs := []*string{&cfg.OpenAIAPIKey, &cfg.UnsplashAccessKey, &cfg.BillingWebhookSecret, &cfg.WalletCreditSecret, &cfg.DatabaseURL}

	needed := false
	for _, v := range refs {
		if secrets.IsReference(*v) {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}
	if cfg.AWSRegion == "" {
		return errors.New("AWS_REGION is required to resolve secret references")
	}

	store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	return secrets.ResolveAll(ctx, store, refs...)
}

func loadPricing(cfg *config.Config) (*cost.PricingTable, error) {
	rates := cost.DefaultRates()
	if cfg.PricingFile != "" {
		loaded, err := cost.LoadRates(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		rates = loaded
		slog.Info("loaded pricing file", "path", cfg.PricingFile, "models", len(rates))
	}
	return cost.NewPricingTable(rates, cfg.FallbackPricingModel)
}

func newWebhookSink(cfg *config.Config) (*billing.WebhookSink, error) {
	var signer *crypto.Signer
	if cfg.BillingWebhookSecret != "" {
		s, err := crypto.NewSigner(cfg.BillingWebhookSecret)
		if err != nil {
			return nil, err
		}
		signer = s
	}
	return billing.NewWebhookSink(cfg.BillingWebhookURL, httputil.NewClient(httputil.DefaultConfig()), signer), nil
}

// buildSinks assembles the billing fan-out from BILLING_SINKS. When the sqs
// sink is enabled its queue is returned too, so the caller can relay it.
func buildSinks(ctx context.Context, cfg *config.Config, wallets repository.WalletRepository, tracker cost.Tracker) (billing.Sink, queue.Queue, error) {
	multi := billing.NewMultiSink()
	var q queue.Queue

	for _, name := range cfg.BillingSinks {
		switch name {
		case "webhook":
			if cfg.BillingWebhookURL == "" {
				slog.Warn("webhook billing sink enabled without BILLING_WEBHOOK_URL, skipping")
				continue
			}
			if cfg.RelaysWebhook() {
				slog.Info("webhook billing sink served by the sqs relay, skipping direct delivery")
				continue
			}
			webhook, err := newWebhookSink(cfg)
			if err != nil {
				return nil, nil, err
			}
			multi.Add("webhook", webhook)
		case "wallet":
			multi.Add("wallet", billing.NewWalletSink(wallets, slog.Default()))
		case "sns":
			if cfg.SNSTopicARN == "" || cfg.AWSRegion == "" {
				return nil, nil, errors.New("sns billing sink requires SNS_TOPIC_ARN and AWS_REGION")
			}
			notifier, err := notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicARN)
			if err != nil {
				return nil, nil, err
			}
			multi.Add("sns", notifier)
		case "sqs":
			if cfg.SQSQueueURL == "" || cfg.AWSRegion == "" {
				return nil, nil, errors.New("sqs billing sink requires SQS_QUEUE_URL and AWS_REGION")
			}
			sqsQueue, err := queue.NewSQSQueue(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
			if err != nil {
				return nil, nil, err
			}
			multi.Add("sqs", sqsQueue)
			q = sqsQueue
		default:
			return nil, nil, fmt.Errorf("unknown billing sink %q", name)
		}
		slog.Info("registered billing sink", "sink", name)
	}

	if cfg.MonthlyBudgetUSD > 0 {
		monitor := budget.NewMonitor(tracker, cfg.MonthlyBudgetUSD, budget.DefaultThresholds())
		monitor.OnAlert(budget.LogAlertHandler)
		multi.Add("budget", monitor)
		slog.Info("spend alerts enabled", "monthly_budget_usd", cfg.MonthlyBudgetUSD)
	}

	if multi.Len() == 0 {
		slog.Warn("no billing sinks configured, cost reports are only kept in the usage ledger")
	}
	return multi, q, nil
}

// breakerGauge maps a breaker state onto the gauge scale 0=closed, 1=half-open, 2=open.
func breakerGauge(s circuitbreaker.State) int {
	switch s {
	case circuitbreaker.StateOpen:
		return 2
	case circuitbreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
