package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/service-storefront/internal/apiclient"
	"github.com/iliyamo/service-storefront/internal/config"
	"github.com/iliyamo/service-storefront/internal/database"
	"github.com/iliyamo/service-storefront/internal/handler"
	"github.com/iliyamo/service-storefront/internal/logging"
	"github.com/iliyamo/service-storefront/internal/metrics"
	"github.com/iliyamo/service-storefront/internal/middleware"
	"github.com/iliyamo/service-storefront/internal/queue"
	"github.com/iliyamo/service-storefront/internal/repository"
	"github.com/iliyamo/service-storefront/internal/router"
	"github.com/iliyamo/service-storefront/internal/service"
	"github.com/iliyamo/service-storefront/internal/session"
	"github.com/iliyamo/service-storefront/internal/validate"
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional unless it stores sessions.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable; cache off, rate limiting per process")
	}

	storage := openSessionStorage(ctx, cfg, rdb, log)
	store := session.NewStore(storage, nil, session.Options{
		TTL:             cfg.SessionTTL,
		RevalidateAfter: cfg.SessionRevalidateAfter,
	})

	// Any 401 from the API ends every session holding that token.
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout,
		apiclient.WithUnauthorizedHook(func(ctx context.Context, token string) {
			if err := store.ClearToken(context.WithoutCancel(ctx), token); err != nil {
				log.WithError(err).Error("session teardown after 401 failed")
			}
		}),
		apiclient.WithObserver(metrics.ObserveAPICall),
	)
	store.SetAuthority(api)

	var events service.Publisher = service.Nop{}
	if cfg.EventsEnabled {
		async := service.NewAsync(service.NewAMQPPublisher(cfg.RabbitURL, log), 256, log)
		defer async.Close()
		events = async
	}
	if cfg.AuditConsumerEnabled {
		consumer := &queue.AuditConsumer{URL: cfg.RabbitURL, Dir: cfg.AuditLogDir, Log: log.WithField("component", "audit-consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	store.Subscribe(func(ev session.Event) {
		metrics.RecordSessionEvent(string(ev.Kind), ev.Reason)
		log.WithFields(logrus.Fields{"kind": ev.Kind, "reason": ev.Reason, "user_id": ev.User.ID}).Debug("session event")
		if ev.Kind == session.EventCleared && ev.Reason != "logout" {
			e := queue.NewEvent(queue.EventSessionEnded, "", "")
			e.Detail = map[string]string{"reason": ev.Reason}
			_ = events.Publish(context.Background(), e)
		}
	})

	cacheCfg := config.LoadCacheConfig()
	h := handler.New(api, store, validate.New(cfg.PasswordLength), events,
		middleware.NewCachePurger(cacheCfg, rdb), log,
		handler.Cookie{Secret: cfg.SessionSecret, TTL: cfg.SessionTTL, Secure: cfg.CookieSecure},
		handler.Site{PaymentNumber: cfg.PaymentNumber, ContactWhatsApp: cfg.ContactWhatsApp},
	)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestLog(log))
	router.RegisterRoutes(e)
	router.RegisterStorefront(e, h, router.Storefront{
		Session: middleware.Session(store, cfg.SessionSecret, log),
		Guard:   middleware.Guard(),
		Limit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:   middleware.NewRedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "session_driver": cfg.SessionDriver}).Info("listening")
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// openSessionStorage picks the session driver named by SESSION_DRIVER.
func openSessionStorage(ctx context.Context, cfg config.Config, rdb *redis.Client, log *logrus.Logger) session.Storage {
	switch cfg.SessionDriver {
	case "memory":
		return session.NewMemoryStorage()
	case "mysql":
		db, err := database.Open(ctx, database.Params{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		})
		if err != nil {
			log.WithError(err).Fatal("mysql connect failed")
		}
		repo := repository.NewSessionRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("session table migration failed")
		}
		go purgeExpired(ctx, repo, log)
		return repo
	default:
		if rdb == nil {
			log.Fatal("SESSION_DRIVER=redis but redis is unreachable")
		}
		return repository.NewRedisSessionRepo(rdb, "sf_sess")
	}
}

// purgeExpired removes expired MySQL sessions every hour.
func purgeExpired(ctx context.Context, repo *repository.SessionRepo, log *logrus.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("session purge failed")
				continue
			}
			log.WithField("removed", n).Debug("expired sessions purged")
		}
	}
}
