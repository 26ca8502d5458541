// Package app builds the jsacademy web application from a source root (content/ and static/) and the
// process configuration, and runs it as an HTTP server.
package app

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"jsacademy/backend/internal/activity"
	activityrepo "jsacademy/backend/internal/activity/repository"
	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/config"
	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/db"
	"jsacademy/backend/internal/entrypoint"
	healthhandler "jsacademy/backend/internal/health/handler"
	learnerrepo "jsacademy/backend/internal/learner/repository"
	learnerservice "jsacademy/backend/internal/learner/service"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/metrics"
	"jsacademy/backend/internal/playground"
	"jsacademy/backend/internal/sandbox"
	"jsacademy/backend/internal/security"
	"jsacademy/backend/internal/server"
	"jsacademy/backend/internal/server/middleware"
	"jsacademy/backend/internal/telemetry"
	telemetryotel "jsacademy/backend/internal/telemetry/otel"
	"jsacademy/backend/internal/telemetry/producer"
)

// Directories under the source root.
const (
	ContentDir = "content"
	StaticDir  = "static"
)

// limiterIdle is how long a client's rate limiter is kept without requests.
const limiterIdle = 10 * time.Minute

// App is the web application. It implements entrypoint.Application.
type App struct {
	cfg     *config.Config
	root    fs.FS
	handler http.Handler

	lessons    *content.Store
	challenges *challenge.Store
	metrics    *metrics.Metrics
	limiter    *middleware.RateLimiter
	shares     playground.ShareStore
	scheduler  *cron.Cron

	db        *sqlx.DB
	redis     *redis.Client
	kafka     *producer.KafkaProducer
	providers *telemetryotel.Providers
	drain     time.Duration

	running       atomic.Bool
	unrunWarnOnce sync.Once

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	learners learnerrepo.Repository
	activity activityrepo.Repository
	emitters []telemetry.EventEmitter
	drain    *time.Duration
}

// Option customizes New.
type Option func(*options)

// WithLearnerRepository uses repo instead of the store selected from DATABASE_URL and REDIS_URL.
func WithLearnerRepository(repo learnerrepo.Repository) Option {
	return func(o *options) { o.learners = repo }
}

// WithActivityRepository uses repo for the activity log.
func WithActivityRepository(repo activityrepo.Repository) Option {
	return func(o *options) { o.activity = repo }
}

// WithEmitter adds a telemetry sink next to the OTel and Kafka emitters.
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(o *options) { o.emitters = append(o.emitters, e) }
}

// WithShutdownDrain overrides the longest Run waits for in-flight telemetry after the server stops.
func WithShutdownDrain(d time.Duration) Option {
	return func(o *options) { o.drain = &d }
}

// Loader returns the entrypoint loader that builds an App from the resolved source root.
func Loader(cfg *config.Config, opts ...Option) entrypoint.Loader {
	return func(ctx context.Context, root fs.FS) (entrypoint.Application, error) {
		return New(ctx, cfg, root, opts...)
	}
}

// New loads the content and challenge catalogs from root, opens the configured infrastructure and builds
// the router. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, root fs.FS, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if root == nil {
		return nil, errors.New("app: nil root")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	contentFS, err := fs.Sub(root, ContentDir)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	cat, err := content.Load(contentFS)
	if err != nil {
		return nil, fmt.Errorf("app: load content: %w", err)
	}
	chCat, err := challenge.LoadCatalog(contentFS)
	if err != nil {
		return nil, fmt.Errorf("app: load challenges: %w", err)
	}

	a := &App{
		cfg:        cfg,
		root:       root,
		lessons:    content.NewStore(cat),
		challenges: challenge.NewStore(chCat),
		metrics:    metrics.New(),
		drain:      telemetry.ShutdownDrainDuration,
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	emitter, err := a.openTelemetry(ctx, o.emitters)
	if err != nil {
		return nil, err
	}
	if o.drain != nil {
		a.drain = *o.drain
	} else if cfg.OTLPEndpoint == "" && a.kafka == nil {
		a.drain = 0
	}

	learners, activityRepo, err := a.openStorage(ctx, o)
	if err != nil {
		return nil, err
	}

	tokens, err := NewTokenProvider(cfg)
	if err != nil {
		return nil, err
	}

	runner := sandbox.New(
		sandbox.WithTimeout(cfg.SandboxTimeoutDuration()),
		sandbox.WithMaxSourceBytes(cfg.SandboxMaxSourceBytes),
		sandbox.WithObserver(a.metrics),
	)
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, a.metrics.RateLimited).TrustProxyHops(cfg.TrustedProxyHops)
	actLogger := activity.NewLogger(activityRepo, emitter, middleware.GetClientIP)
	svc := learnerservice.NewLearnerService(learners, security.NewHasher(cfg.BcryptCost), tokens, a.lessons, a.challenges, actLogger)

	var static fs.FS
	if fi, statErr := fs.Stat(root, StaticDir); statErr == nil && fi.IsDir() {
		if static, err = fs.Sub(root, StaticDir); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	a.handler = server.NewRouter(server.Deps{
		Content:        a.lessons,
		Challenges:     a.challenges,
		Evaluator:      challenge.NewEvaluator(runner),
		Playground:     playground.NewRunner(runner),
		Shares:         a.shares,
		Learners:       svc,
		Tokens:         tokens,
		Activity:       activityRepo,
		ActivityLogger: actLogger,
		Metrics:        a.metrics,
		RateLimiter:    a.limiter,
		CORSOrigins:    cfg.CORSOrigins(),
		Emitter:        emitter,
		HealthChecks: map[string]healthhandler.CheckFunc{
			"content":  a.checkContent,
			"learners": learners.Ping,
		},
		Static:         static,
		MaxSourceBytes: cfg.SandboxMaxSourceBytes,
		ShareTTL:       cfg.ShareTTLDuration(),
	})

	if a.scheduler, err = a.newScheduler(); err != nil {
		return nil, err
	}
	return a, nil
}

// openTelemetry sets up the OTel providers and the Kafka producer and returns the combined emitter.
func (a *App) openTelemetry(ctx context.Context, extra []telemetry.EventEmitter) (telemetry.EventEmitter, error) {
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    a.cfg.OTLPEndpoint,
		ServiceName: a.cfg.ServiceName,
		Environment: a.cfg.Env,
		Insecure:    a.cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("app: telemetry: %w", err)
	}
	a.providers = providers
	providers.SetGlobal()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if p := producer.NewKafkaProducer(a.cfg.KafkaBrokersList(), a.cfg.ActivityKafkaTopic); p != nil {
		a.kafka = p
		emitters = append(emitters, p)
		logging.Logger().WithField("topic", p.Topic()).Info("activity events produced to kafka")
	}
	emitters = append(emitters, extra...)
	return telemetry.Multi(emitters...), nil
}

// openStorage selects the learner and activity stores: Postgres when DATABASE_URL is set, else Redis when
// REDIS_URL is set, else memory. Snippet sharing uses Redis when available.
func (a *App) openStorage(ctx context.Context, o options) (learnerrepo.Repository, activityrepo.Repository, error) {
	learners, activityRepo := o.learners, o.activity
	log := logging.Logger()

	switch {
	case a.cfg.DatabaseURL != "":
		conn, err := db.Open(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		a.db = conn
		if learners == nil {
			learners = learnerrepo.NewPostgresRepository(conn)
		}
		if activityRepo == nil {
			activityRepo = activityrepo.NewPostgresRepository(conn)
		}
		log.Info("learner data stored in postgres")
	case a.cfg.RedisURL != "" && learners == nil:
		log.Info("learner data stored in redis")
	case learners == nil:
		log.Warn("no DATABASE_URL or REDIS_URL; learner data is kept in memory")
	}

	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("app: REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("app: redis ping: %w", err)
		}
		if learners == nil {
			learners = learnerrepo.NewRedisRepository(a.redis)
		}
		a.shares = playground.NewRedisShareStore(a.redis)
	} else {
		a.shares = playground.NewMemoryShareStore()
	}

	if learners == nil {
		learners = learnerrepo.NewMemoryRepository()
	}
	if activityRepo == nil {
		activityRepo = activityrepo.NewMemoryRepository(0)
	}
	return learners, activityRepo, nil
}

// NewTokenProvider builds the learner token provider from the configured key pair, or an ephemeral pair when none is set.
func NewTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	if cfg.LearnerTokenPrivateKey != "" {
		priv, pub, err = security.LoadKeyPair(cfg.LearnerTokenPrivateKey, cfg.LearnerTokenPublicKey)
	} else {
		logging.Logger().Warn("no learner token keys configured; using an ephemeral key pair")
		priv, pub, err = security.GenerateEphemeralKeyPair()
	}
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	tp, err := security.NewTokenProvider(priv, pub, cfg.LearnerTokenIssuer, cfg.LearnerTokenAudience, cfg.LearnerTokenTTLDuration())
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return tp, nil
}

func (a *App) checkContent(context.Context) error {
	if cat := a.lessons.Catalog(); cat == nil || len(cat.Paths) == 0 {
		return errors.New("content catalog is empty")
	}
	return nil
}

// ServeHTTP serves a request through the router. Served without Run (the hosted entry point), the
// scheduler never starts; a configured reload schedule is reported once.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !a.running.Load() && a.cfg.ContentReloadSchedule != "" {
		a.unrunWarnOnce.Do(func() {
			logging.Logger().WithField("schedule", a.cfg.ContentReloadSchedule).
				Warn("CONTENT_RELOAD_SCHEDULE is ignored: the scheduler only runs in server mode")
		})
	}
	a.handler.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done, then shuts down gracefully and
// closes the application. A listener or server failure is returned; a clean shutdown returns nil.
func (a *App) Run(ctx context.Context) error {
	log := logging.Logger()
	lis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	a.running.Store(true)
	a.scheduler.Start()

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", lis.Addr().String()).Info("HTTP server listening")
		serveErr <- srv.Serve(lis)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-ctx.Done():
		log.Info("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeoutDuration())
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown incomplete")
			_ = srv.Close()
		}
		cancel()
	}

	<-a.scheduler.Stop().Done()
	if a.drain > 0 {
		drainCtx, cancel := context.WithTimeout(context.Background(), a.drain)
		if err := telemetry.Drain(drainCtx); err != nil {
			log.WithError(err).Warn("telemetry emits still in flight")
		}
		cancel()
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		log.WithError(err).Warn("close resources")
	}
	log.Info("HTTP server stopped")
	return runErr
}

// Close releases the database, Redis, Kafka and telemetry providers. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.kafka != nil {
			errs = append(errs, a.kafka.Close())
		}
		if a.providers != nil && a.providers.Shutdown != nil {
			errs = append(errs, a.providers.Shutdown(ctx))
		}
		if a.redis != nil {
			errs = append(errs, a.redis.Close())
		}
		if a.db != nil {
			errs = append(errs, a.db.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
