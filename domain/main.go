package domain

import (
	"github.com/akeren/waitlist-api/config"
	"github.com/akeren/waitlist-api/domain/monitoring"
	"github.com/akeren/waitlist-api/domain/waitlist"
	"github.com/akeren/waitlist-api/pkg/circuitbreaker"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	monitoringFactory := monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, appConfig.Cache)
	waitlistFactory := waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, WaitlistOptions(appConfig)...)

	appConfig.RouterService.MountController(monitoringFactory.CreateController())
	appConfig.RouterService.MountController(waitlistFactory.CreateController())
}

// WaitlistOptions wires the intake pipeline from application configuration.
func WaitlistOptions(appConfig *config.ApplicationConfig) []waitlist.Option {
	intake := appConfig.Config.Intake

	opts := []waitlist.Option{
		waitlist.WithSettings(waitlist.Settings{
			RequireConsent: intake.RequireConsent,
			RequireCaptcha: intake.RequireCaptcha,
			AutoActivate:   intake.AutoActivate,
		}),
		waitlist.WithStoreTimeout(intake.StoreTimeout),
		waitlist.WithPublisher(appConfig.Publisher),
	}

	if appConfig.Factories != nil {
		opts = append(opts, waitlist.WithRateLimiter(appConfig.Factories.IntakeLimiterFactory.CreateRateLimiter()))
	}

	if intake.RequireCaptcha {
		if intake.CaptchaSecret == "" {
			appConfig.Logger.Warn("REQUIRE_CAPTCHA is set but TURNSTILE_SECRET_KEY is empty; every submission will be rejected")
		}
		opts = append(opts, waitlist.WithCaptchaVerifier(waitlist.NewTurnstileVerifier(
			intake.CaptchaSecret,
			intake.CaptchaVerifyURL,
			intake.CaptchaTimeout,
			circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		)))
	}

	return opts
}
