package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"

	"github.com/chamapesa/chama-wallet/internal/facades"
	"github.com/chamapesa/chama-wallet/internal/handlers"
	"github.com/chamapesa/chama-wallet/internal/jwt"
	"github.com/chamapesa/chama-wallet/internal/logger"
	"github.com/chamapesa/chama-wallet/internal/middlewares"
	"github.com/chamapesa/chama-wallet/internal/repositories"
	"github.com/chamapesa/chama-wallet/internal/services"
	"github.com/chamapesa/chama-wallet/internal/tx"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config holds all application configuration loaded from the environment.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	RoleCacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecretKey string
	JWTExp       time.Duration

	MobileMoneyURL string
	MobileMoneyKey string
	CardURL        string
	CardKey        string
	GatewayTimeout time.Duration
	WebhookSecret  string

	FeeBasisPoints   int64
	PollInterval     time.Duration
	PollAttempts     int
	QueryAttempts    int
	InitiateAttempts int
	MaxPendingAge    time.Duration
	SweepSpec        string
}

// @title chama-wallet API
// @version 1.0.0
// @description Financial core for community savings groups: wallets, ledger, contributions, payments and turn schedules
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application configuration.
func parseConfig(path string) (*config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	var err error
	getInt := func(key string, defaultValue int) int {
		if err != nil {
			return 0
		}
		var v int
		if v, err = strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue))); err != nil {
			err = fmt.Errorf("invalid %s: %w", key, err)
		}
		return v
	}
	getDuration := func(key, defaultValue string) time.Duration {
		if err != nil {
			return 0
		}
		var v time.Duration
		if v, err = time.ParseDuration(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("invalid %s: %w", key, err)
		}
		return v
	}

	cfg := &config{
		AppHost:  getEnv("APP_HOST", "localhost"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("APP_LOG_LEVEL", "info"),

		PGHost:         getEnv("POSTGRES_HOST", "localhost"),
		PGPort:         getInt("POSTGRES_PORT", 5432),
		PGUser:         getEnv("POSTGRES_USER", "user"),
		PGPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PGDB:           getEnv("POSTGRES_DB", "database"),
		PGMaxOpenConns: getInt("POSTGRES_MAX_OPEN_CONNS", 16),
		PGMaxIdleConns: getInt("POSTGRES_MAX_IDLE_CONNS", 8),

		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getInt("REDIS_PORT", 6379),
		RedisDB:           getInt("REDIS_DB", 0),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisPoolSize:     getInt("REDIS_POOL_SIZE", 10),
		RedisMinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
		RoleCacheTTL:      getDuration("ROLE_CACHE_TTL", "5m"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "chama-events"),

		JWTSecretKey: getEnv("JWT_SECRET_KEY", "my_super_secret_key"),
		JWTExp:       time.Duration(getInt("JWT_EXP_SECOND", 3600)) * time.Second,

		MobileMoneyURL: getEnv("MOBILE_MONEY_URL", "http://localhost:9091"),
		MobileMoneyKey: getEnv("MOBILE_MONEY_API_KEY", ""),
		CardURL:        getEnv("CARD_URL", "http://localhost:9092"),
		CardKey:        getEnv("CARD_API_KEY", ""),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", "10s"),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", "webhook_secret"),

		FeeBasisPoints:   int64(getInt("PAYMENT_FEE_BPS", 150)),
		PollInterval:     getDuration("RECON_POLL_INTERVAL", "20s"),
		PollAttempts:     getInt("RECON_POLL_ATTEMPTS", 15),
		QueryAttempts:    getInt("RECON_QUERY_ATTEMPTS", 5),
		InitiateAttempts: getInt("GATEWAY_INITIATE_ATTEMPTS", 3),
		MaxPendingAge:    getDuration("RECON_MAX_PENDING_AGE", "1h"),
		SweepSpec:        getEnv("RECON_SWEEP_SPEC", "@every 10m"),
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// run initializes the logger, database, Redis, Kafka, gateways, cron and
// HTTP server. It sets up routes, applies middleware, and handles graceful
// shutdown.
func run(ctx context.Context, cfg *config) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infof("Connecting to PostgreSQL at %s:%d", cfg.PGHost, cfg.PGPort)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		logger.Log.Fatal("PostgreSQL connection error:", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		logger.Log.Fatal("PostgreSQL ping failed:", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Redis connection error:", err)
	}
	defer rdb.Close()

	// Kafka writer for notification events
	kafkaWriter := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.KafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kafkaWriter.Close()

	// Payment gateways
	gateways := map[string]facades.Gateway{
		"mobile_money": facades.NewMobileMoneyGateway(cfg.MobileMoneyURL, cfg.MobileMoneyKey, cfg.GatewayTimeout),
		"card":         facades.NewCardGateway(cfg.CardURL, cfg.CardKey, cfg.GatewayTimeout),
	}

	// Initialize JWT service
	tokener := jwt.New(cfg.JWTSecretKey, cfg.JWTExp)

	// Initialize repositories
	txManager := tx.NewManager(db)
	walletRepo := repositories.NewWalletRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	contributionRepo := repositories.NewContributionRepository(db)
	scheduleRepo := repositories.NewScheduleRepository(db)
	roleReadRepo := repositories.NewRoleReadRepository(db)
	roleWriteRepo := repositories.NewRoleWriteRepository(db)
	roleCacheRepo := repositories.NewRoleCacheRepository(rdb, cfg.RoleCacheTTL)
	auditRepo := repositories.NewAuditRepository(db)

	// Initialize services
	notifier := services.NewNotifier(kafkaWriter)
	roleService := services.NewRoleService(txManager, roleReadRepo, roleWriteRepo, roleCacheRepo, scheduleRepo, auditRepo, notifier)
	ledgerService := services.NewLedgerService(txManager, walletRepo, ledgerRepo, scheduleRepo, auditRepo)
	walletService := services.NewWalletService(ledgerService, walletRepo, roleService)
	contributionService := services.NewContributionService(txManager, contributionRepo, ledgerService, roleService, auditRepo, notifier)
	scheduleService := services.NewScheduleService(txManager, scheduleRepo, roleService, auditRepo, notifier)
	paymentService := services.NewPaymentService(ledgerService, ledgerRepo, walletRepo, gateways, roleService, notifier, services.PaymentConfig{
		FeeBasisPoints:   cfg.FeeBasisPoints,
		PollInterval:     cfg.PollInterval,
		PollAttempts:     cfg.PollAttempts,
		QueryAttempts:    uint64(cfg.QueryAttempts),
		InitiateAttempts: uint64(cfg.InitiateAttempts),
		MaxPendingAge:    cfg.MaxPendingAge,
	})

	// Resume reconciliation of payments left pending by a previous run.
	if err := paymentService.Start(ctx); err != nil {
		logger.Log.Fatal("failed to resume pending payments:", err)
	}
	defer paymentService.Stop()

	// Periodic sweep flags stale pending payments for manual review.
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(cfg.SweepSpec, paymentService.SweepStale); err != nil {
		logger.Log.Fatal("failed to schedule payment sweep:", err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	// Initialize handlers
	balanceHandler := handlers.NewGetBalanceHandler(walletService)
	topupHandler := handlers.NewTopupHandler(walletService)
	withdrawHandler := handlers.NewWithdrawHandler(walletService)
	sendHandler := handlers.NewSendHandler(walletService)
	submitContributionHandler := handlers.NewSubmitContributionHandler(contributionService)
	listContributionsHandler := handlers.NewListContributionsHandler(contributionService)
	verifyContributionHandler := handlers.NewVerifyContributionHandler(contributionService)
	rejectContributionHandler := handlers.NewRejectContributionHandler(contributionService)
	initiatePaymentHandler := handlers.NewInitiatePaymentHandler(paymentService)
	paymentWebhookHandler := handlers.NewPaymentWebhookHandler(paymentService)
	paymentStatusHandler := handlers.NewPaymentStatusHandler(paymentService)
	paymentReviewHandler := handlers.NewPaymentReviewHandler(paymentService)
	getScheduleHandler := handlers.NewGetScheduleHandler(scheduleService)
	advanceTurnHandler := handlers.NewAdvanceTurnHandler(scheduleService)
	lockAllTurnsHandler := handlers.NewLockAllTurnsHandler(scheduleService)
	assignRoleHandler := handlers.NewAssignRoleHandler(roleService)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway callback, authenticated with a shared secret
		r.Group(func(r chi.Router) {
			r.Use(middlewares.WebhookAuthMiddleware(cfg.WebhookSecret))
			r.Post("/payments/webhook", paymentWebhookHandler)
		})

		// Protected routes with JWT middleware
		r.Group(func(r chi.Router) {
			r.Use(middlewares.AuthMiddleware(tokener))

			r.Get("/wallets/balance", balanceHandler)
			r.Post("/wallets/topup", topupHandler)
			r.Post("/wallets/withdraw", withdrawHandler)
			r.Post("/wallets/send", sendHandler)

			r.Post("/contributions", submitContributionHandler)
			r.Post("/contributions/{contributionID}/verify", verifyContributionHandler)
			r.Post("/contributions/{contributionID}/reject", rejectContributionHandler)
			r.Get("/chamas/{chamaID}/contributions", listContributionsHandler)

			r.Post("/payments/initiate", initiatePaymentHandler)
			r.Get("/payments/{reference}", paymentStatusHandler)
			r.Get("/chamas/{chamaID}/payments/review", paymentReviewHandler)

			r.Get("/chamas/{chamaID}/schedule", getScheduleHandler)
			r.Post("/chamas/{chamaID}/schedule/advance", advanceTurnHandler)
			r.Post("/chamas/{chamaID}/schedule/lock-all", lockAllTurnsHandler)

			r.Post("/chamas/{chamaID}/roles", assignRoleHandler)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler: r,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
