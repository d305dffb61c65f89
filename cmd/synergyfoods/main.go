package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"synergyfoods/internal/cache"
	"synergyfoods/internal/config"
	"synergyfoods/internal/events"
	"synergyfoods/internal/http/handlers"
	"synergyfoods/internal/http/router"
	applog "synergyfoods/internal/log"
	"synergyfoods/internal/payment"
	"synergyfoods/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			out = io.MultiWriter(os.Stdout, f)
			log.SetOutput(out)
		}
	}
	applog.SetLogger(applog.New(out, cfg.LogLevel))
	defer applog.Sync()
	lg := applog.L()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		lg.Fatal("db.open", zap.Error(err))
	}
	defer db.Close()

	// Catalog cache: redis when configured.
	var store cache.Store = cache.Noop{}
	if cfg.RedisAddr != "" {
		rc := cache.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(ctx); err != nil {
			lg.Warn("cache.redis.unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			lg.Info("cache.redis.connected", zap.String("addr", cfg.RedisAddr))
		}
		cancel()
		defer rc.Close()
		store = rc
	}

	// Order events: kafka when configured.
	var pub events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		lg.Info("events.kafka.enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// Without a secret key card orders stay PENDING_PAYMENT and land on the confirmation page.
	var gw payment.Gateway = payment.Offline{}
	if cfg.PaymentSecretKey != "" {
		gw = payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey)
	} else {
		lg.Warn("payment.offline", zap.String("reason", "PAYMENT_SECRET_KEY not set"))
	}

	deps := handlers.NewDeps(db, cfg, store, pub, gw)
	app := router.New(deps, router.Options{
		TemplatesDir: "./web/templates",
		StaticDir:    "./web/static",
		MediaDir:     cfg.MediaDir,
		Production:   cfg.Production(),
		AccessLog:    true,
	})

	go func() {
		lg.Info("server.start", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("server.listen", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	lg.Info("server.shutdown")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		lg.Error("server.shutdown", zap.Error(err))
	}
}
