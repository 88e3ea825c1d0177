package config

import (
	"context"
	"time"

	"github.com/akeren/waitlist-api/config/router"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/constants"
	"github.com/akeren/waitlist-api/pkg/events"
	"github.com/akeren/waitlist-api/pkg/factory"
	"github.com/akeren/waitlist-api/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Factories       *factory.FactoryContainer
	Publisher       events.Publisher
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	Intake            IntakeConfig
}

// IntakeConfig controls the waitlist signup pipeline.
type IntakeConfig struct {
	RequireConsent   bool
	RequireCaptcha   bool
	CaptchaSecret    string
	CaptchaVerifyURL string
	CaptchaTimeout   time.Duration
	AutoActivate     bool

	RateLimitRequests int
	RateLimitWindow   time.Duration
	// RateLimitBackend is "memory" (default) or "redis".
	RateLimitBackend string

	StoreTimeout time.Duration
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", 30*time.Second),
		Intake:            NewIntakeConfig(),
	}
}

func NewIntakeConfig() IntakeConfig {
	return IntakeConfig{
		RequireConsent:    utils.GetEnvBool("REQUIRE_CONSENT", false),
		RequireCaptcha:    utils.GetEnvBool("REQUIRE_CAPTCHA", false),
		CaptchaSecret:     sanitizeEnv(utils.GetEnvTrimmed("TURNSTILE_SECRET_KEY")),
		CaptchaVerifyURL:  utils.GetEnvTrimmedOrDefault("CAPTCHA_VERIFY_URL", constants.DefaultCaptchaVerifyURL),
		CaptchaTimeout:    utils.GetEnvPositiveDuration("CAPTCHA_TIMEOUT", constants.DefaultOutboundTimeout),
		AutoActivate:      utils.GetEnvBool("AUTO_ACTIVATE", false),
		RateLimitRequests: utils.GetEnvPositiveInt("WAITLIST_RATE_LIMIT_REQUESTS", constants.DefaultIntakeRateLimitRequests),
		RateLimitWindow:   utils.GetEnvPositiveDuration("WAITLIST_RATE_LIMIT_WINDOW", constants.DefaultIntakeRateLimitWindow),
		RateLimitBackend:  utils.GetEnvTrimmedOrDefault("WAITLIST_RATE_LIMIT_BACKEND", factory.BackendMemory),
		StoreTimeout:      utils.GetEnvPositiveDuration("STORE_TIMEOUT", constants.DefaultOutboundTimeout),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		_ = CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

// NewApplicationConfig assembles the router, limiters and publisher around an
// already opened database. The server and the integration suite share it.
func NewApplicationConfig(logger *log.Logger, db *gorm.DB, cache Cache, appConfig *AppConfig) *ApplicationConfig {
	factories := factory.NewFactoryContainer(
		&factory.RateLimitConfig{
			Requests: appConfig.RateLimitRequests,
			Window:   appConfig.RateLimitWindow,
			Logger:   logger,
		},
		&factory.RateLimitConfig{
			Requests: appConfig.Intake.RateLimitRequests,
			Window:   appConfig.Intake.RateLimitWindow,
			Backend:  appConfig.Intake.RateLimitBackend,
			Logger:   logger,
		},
		cache,
	)

	routerService := router.CreateRouterService(logger, &router.RouterConfig{
		RateLimiter:    factories.RouterLimiterFactory.CreateRateLimiter(),
		RequestTimeout: appConfig.RequestTimeout,
	})

	return &ApplicationConfig{
		DB:            db,
		RouterService: routerService,
		Logger:        logger,
		Cache:         cache,
		Factories:     factories,
		Publisher:     NewEventPublisher(cache, logger),
		Config:        appConfig,
	}
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, nil)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	application := NewApplicationConfig(logger, db, cache, appConfig)
	application.TracingShutdown = tracingShutdown

	logger.Info("Application configuration loaded successfully",
		"require_consent", appConfig.Intake.RequireConsent,
		"require_captcha", appConfig.Intake.RequireCaptcha,
		"auto_activate", appConfig.Intake.AutoActivate,
		"intake_rate_limit_backend", appConfig.Intake.RateLimitBackend,
	)

	return application, nil
}
