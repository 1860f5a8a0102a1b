package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/catalog"
	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/config"
	"github.com/stanercelik/PolySleep-sub003/internal/database"
	httpapi "github.com/stanercelik/PolySleep-sub003/internal/http"
	"github.com/stanercelik/PolySleep-sub003/internal/logger"
	"github.com/stanercelik/PolySleep-sub003/internal/notify"
	"github.com/stanercelik/PolySleep-sub003/internal/repository"
	"github.com/stanercelik/PolySleep-sub003/internal/service"
	"github.com/stanercelik/PolySleep-sub003/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// schedules: Postgres, memory when disabled or unreachable
	var db *sql.DB
	var schedules repository.ScheduleStore
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			pg := repository.NewPostgresScheduleStore(d)
			if err := pg.Migrate(ctx); err != nil {
				log.Warn("schema migration failed, falling back to memory store", zap.Error(err))
				_ = database.Close(d)
			} else {
				db = d
				schedules = pg
				log.Info("DB enabled for polysleep", zap.String("host", cfg.Database.Host))
			}
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if schedules == nil {
		schedules = repository.NewMemoryScheduleStore()
	}

	// undo snapshots and streaks: Redis, memory when disabled or unreachable
	var redisClient *redis.Client
	var kv store.KV
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Warn("Redis enabled but unreachable, falling back to memory KV", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			kv = store.NewRedisKV(redisClient)
		}
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}

	// adaptation event publishers
	var targets []notify.Publisher
	if redisClient != nil && cfg.Notify.Stream != "" {
		targets = append(targets, notify.NewRedisStreamPublisher(redisClient, cfg.Notify.Stream, cfg.Notify.StreamMaxLen))
	}
	var mqttClient *notify.MQTTClient
	if cfg.MQTT.Enabled {
		if c, err := notify.NewMQTTClient(&cfg.MQTT); err == nil {
			mqttClient = c
			targets = append(targets, notify.NewMQTTPublisher(c, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS))
		} else {
			log.Warn("MQTT enabled but connection failed, events will not be published to MQTT", zap.Error(err))
		}
	}
	if cfg.Notify.WebhookURL != "" {
		targets = append(targets, notify.NewWebhookPublisher(cfg.Notify.WebhookURL, cfg.Notify.WebhookTO, cfg.Notify.WebhookRetry))
	}
	fanout := notify.NewMultiPublisher(targets...)
	log.Info("adaptation event publishers configured", zap.Int("count", fanout.Len()))
	publisher := notify.NewAsyncPublisher(fanout, notify.DefaultQueueSize, notify.DefaultDeliveryTimeout, log)

	cat := catalog.New()
	if cfg.Catalog.File != "" {
		templates, err := catalog.LoadFile(cfg.Catalog.File)
		if err == nil {
			err = cat.Merge(templates)
		}
		if err != nil {
			log.Warn("failed to load catalog file, using built-in templates only",
				zap.String("file", cfg.Catalog.File),
				zap.Error(err),
			)
		} else {
			log.Info("catalog file loaded", zap.String("file", cfg.Catalog.File), zap.Int("templates", len(templates)))
		}
	}

	clk := clock.NewSystem(cfg.Adaptation.Location)
	locks := service.NewUserMutex()
	snapshots := store.NewUndoStore(kv, cfg.Undo.KeyPrefix, cfg.Undo.TTL)
	streaks := store.NewStreakStore(kv, cfg.Undo.StreakKeyPrefix)

	ledger := service.NewUndoLedger(schedules, snapshots, streaks, clk, locks, publisher, log)
	lifecycle := service.NewLifecycleManager(schedules, ledger, streaks, clk, locks, publisher, log)
	svc := service.NewScheduleService(schedules, lifecycle, ledger, cat, clk, log)

	router := httpapi.NewRouter(log)
	router.RegisterScheduleRoutes(httpapi.NewScheduleHandler(svc, clk, log))
	router.RegisterUndoRoutes(httpapi.NewUndoHandler(svc, clk, log))
	router.RegisterCatalogRoutes(httpapi.NewCatalogHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	if cfg.Adaptation.ReconcileInterval > 0 {
		reconciler := service.NewReconciler(schedules, clk, locks, publisher, cfg.Adaptation.ReconcileInterval, log)
		go func() {
			if err := reconciler.Start(ctx); err != nil {
				log.Error("reconciler stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := publisher.Close(shutdownCtx); err != nil {
		log.Warn("adaptation events still queued at shutdown", zap.Error(err))
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = database.Close(db)
}
