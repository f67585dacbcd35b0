package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/bank"
	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/logging"
	"github.com/segyhp/lending-engine/internal/monitoring"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Logging)
	response.Logger = logger

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	notifier, closeNotifier, err := initNotifier(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize notifications")
	}
	defer closeNotifier()

	// Initialize repositories
	applicationRepo := repository.NewApplicationRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	repaymentRepo := repository.NewRepaymentRepository(db)

	// Initialize service
	lendingService := service.NewLendingService(
		applicationRepo,
		loanRepo,
		repaymentRepo,
		repository.NewTransactor(db),
		bank.NewHTTPClient(cfg.Bank.BaseURL, cfg.Bank.Timeout, logger),
		notifier,
		cache.NewRedisLoanCache(redisClient, cfg.Cache.SummaryTTL),
		cfg,
		logger,
	)
	lendingHandler := handler.NewLendingHandler(lendingService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout, logger)

	limiter := handler.NewRateLimiter(cfg.RateLimit, logger)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(time.Minute, stopCleanup)
	defer close(stopCleanup)

	// Setup routes
	router := handler.NewRouter(
		lendingHandler,
		healthHandler,
		monitoring.Handler(),
		response.CORSMiddleware,
		logging.Middleware(logger),
		monitoring.Middleware,
		limiter.Middleware,
	)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// initNotifier combines the enabled delivery channels. The returned func
// releases the broker connection, if any.
func initNotifier(cfg *config.Config, logger logrus.FieldLogger) (notify.Notifier, func(), error) {
	var fanout notify.Fanout
	closer := func() {}

	if cfg.Email.Enabled {
		fanout = append(fanout, notify.NewEmailNotifier(cfg.Email, logger))
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, closer, err
		}
		publisher, err := notify.NewEventPublisher(conn, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			conn.Close()
			return nil, closer, err
		}
		fanout = append(fanout, publisher)
		closer = func() {
			if err := conn.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close RabbitMQ connection")
			}
		}
	}

	if len(fanout) == 0 {
		logger.Info("No notification channel enabled; borrower notifications are dropped")
	}
	return fanout, closer, nil
}
