package waitlist

import (
	"time"

	"github.com/akeren/waitlist-api/config/router"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/pkg/events"
	"github.com/akeren/waitlist-api/pkg/ratelimit"
	"gorm.io/gorm"
)

type serviceOptions struct {
	limiter      ratelimit.RateLimiter
	captcha      CaptchaVerifier
	publisher    events.Publisher
	metrics      *Metrics
	settings     Settings
	now          func() time.Time
	storeTimeout time.Duration
}

type Option func(*serviceOptions)

// WithRateLimiter sets the per-client intake limiter. Without one the rate
// guard admits everything.
func WithRateLimiter(limiter ratelimit.RateLimiter) Option {
	return func(o *serviceOptions) { o.limiter = limiter }
}

func WithCaptchaVerifier(verifier CaptchaVerifier) Option {
	return func(o *serviceOptions) { o.captcha = verifier }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(o *serviceOptions) { o.publisher = publisher }
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *serviceOptions) { o.metrics = metrics }
}

func WithSettings(settings Settings) Option {
	return func(o *serviceOptions) { o.settings = settings }
}

// WithClock replaces time.Now for created_at and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithStoreTimeout bounds each store call made by the repository.
func WithStoreTimeout(timeout time.Duration) Option {
	return func(o *serviceOptions) { o.storeTimeout = timeout }
}

func buildOptions(opts []Option) *serviceOptions {
	o := &serviceOptions{
		publisher: events.NoopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, opts ...Option) WaitlistService {
	return newService(logger, repository, buildOptions(opts))
}

func newService(logger *log.Logger, repository WaitlistRepository, o *serviceOptions) *waitlistService {
	return &waitlistService{
		logger:     logger,
		repository: repository,
		guards: &guardChain{
			logger:   logger,
			limiter:  o.limiter,
			captcha:  o.captcha,
			settings: o.settings,
		},
		publisher: o.publisher,
		metrics:   o.metrics,
		settings:  o.settings,
		now:       o.now,
	}
}

func newServiceForDB(db *gorm.DB, logger *log.Logger, opts ...Option) WaitlistService {
	o := buildOptions(opts)
	return newService(logger, NewWaitlistRepository(db, o.storeTimeout), o)
}

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db     *gorm.DB
	logger *log.Logger
	opts   []Option
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, opts ...Option) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:     db,
		logger: logger,
		opts:   opts,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return newServiceForDB(f.db, f.logger, f.opts...)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.db, f.logger, f.opts...)
}
