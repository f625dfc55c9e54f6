// Package app assembles configuration, infrastructure, services, and the
// HTTP server into a runnable application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/harborlight-foundation/member-portal/internal/core/port"
	"github.com/harborlight-foundation/member-portal/internal/infra/config"
	"github.com/harborlight-foundation/member-portal/internal/infra/database"
	kafkainfra "github.com/harborlight-foundation/member-portal/internal/infra/kafka"
	"github.com/harborlight-foundation/member-portal/internal/infra/logger"
	"github.com/harborlight-foundation/member-portal/internal/infra/mail"
	redisinfra "github.com/harborlight-foundation/member-portal/internal/infra/redis"
	"github.com/harborlight-foundation/member-portal/internal/infra/security"
	memoryrepo "github.com/harborlight-foundation/member-portal/internal/repository/memory"
	postgresrepo "github.com/harborlight-foundation/member-portal/internal/repository/postgres"
	redisrepo "github.com/harborlight-foundation/member-portal/internal/repository/redis"
	"github.com/harborlight-foundation/member-portal/internal/transport/http/middleware"
	"github.com/harborlight-foundation/member-portal/internal/transport/http/routes"
	"github.com/harborlight-foundation/member-portal/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Postgres.Migrate {
		if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}

	var redisClient *redisinfra.Client
	var rateLimitStore port.RateLimitStore
	if cfg.Redis.Host != "" {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		rateLimitStore = redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "portal:rate-limit",
			TTL:       rateLimitWindow * 2,
		})
	} else {
		log.Info("redis not configured, rate limiting in memory")
		rateLimitStore = memoryrepo.NewRateLimitStore()
	}

	cleanup := func() {
		pool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	signer, err := security.NewSessionSigner([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init session signer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	unitOfWork := postgresrepo.NewUnitOfWork(pool)

	var eventPublisher port.EventPublisher
	var kafkaProducer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var mailer port.Mailer
	if cfg.SMTP.Host != "" {
		smtpMailer, err := mail.NewSMTPMailer(cfg.SMTP, log)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		mailer = smtpMailer
	} else {
		log.Info("smtp not configured, logging mail instead")
		mailer = mail.NewLogMailer(log)
	}
	mailBuilder := mail.LinkBuilder{BaseURL: cfg.App.BaseURL}

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	passwordValidator := security.DefaultPasswordValidator()

	tokenService := usecase.NewTokenService(repos.Tokens, unitOfWork, log)
	registrationService := usecase.NewRegistrationService(repos.Users, tokenService, mailer, mailBuilder, eventPublisher, passwordValidator, log)
	passwordService := usecase.NewPasswordService(repos.Users, tokenService, mailer, mailBuilder, eventPublisher, passwordValidator, log)
	emailChangeService := usecase.NewEmailChangeService(repos.Users, tokenService, mailer, mailBuilder, eventPublisher, log)
	authService := usecase.NewAuthService(repos.Users, signer, log)
	userService := usecase.NewUserService(repos.Users, eventPublisher, log)
	hoursService := usecase.NewHoursService(repos.Hours, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: cfg.Telemetry.MetricsNamespace,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	var cacheChecker routes.CacheChecker
	if redisClient != nil {
		cacheChecker = redisClient
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Signer:      signer,
		Database:    pool,
		Cache:       cacheChecker,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Passwords:    passwordService,
			EmailChange:  emailChangeService,
			Users:        userService,
			Hours:        hoursService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting member portal API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("server stopped gracefully")
		return nil
	case err := <-serverErrCh:
		return err
	}
}
