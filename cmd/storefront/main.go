package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ELperrocode/codeskins-storefront/internal/backend"
	"github.com/ELperrocode/codeskins-storefront/internal/cart"
	"github.com/ELperrocode/codeskins-storefront/internal/checkout"
	"github.com/ELperrocode/codeskins-storefront/internal/config"
	"github.com/ELperrocode/codeskins-storefront/internal/proxy"
	"github.com/ELperrocode/codeskins-storefront/internal/session"
	"github.com/ELperrocode/codeskins-storefront/internal/web"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.Out = os.Stdout
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}

	client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout, log)

	var countCache cart.CountCache
	if cfg.RedisAddr != "" {
		countCache = cart.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		log.WithField("addr", cfg.RedisAddr).Info("badge cache backed by redis")
	} else {
		countCache = cart.NewMemoryCache()
	}
	store := cart.NewStore(client, countCache, log)

	registry := session.NewRegistry(func(identity string) *session.Controllers {
		return &session.Controllers{
			Cart:     cart.NewController(client, store, identity, log),
			Checkout: checkout.NewController(client, identity, cfg.CheckoutTimeout, cfg.TaxRate, log),
		}
	}, store, cfg.SessionIdleTTL, log)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	registry.StartJanitor(janitorCtx)

	router := web.NewRouter(web.RouterDeps{
		Cart:           web.NewCartHandler(registry, store, cfg.TaxRate),
		Checkout:       web.NewCheckoutHandler(registry),
		CheckoutProxy:  proxy.NewCheckoutSessionHandler(cfg.BackendURL, cfg.CheckoutTimeout, log),
		Log:            log,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.HTTPPort,
			"backend": cfg.BackendURL,
		}).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("server exited")
}
