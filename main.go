package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "seatledger/internal/config"
	intdb "seatledger/internal/db"
	router "seatledger/internal/http"
	"seatledger/internal/http/handlers"
	"seatledger/internal/messaging"
	"seatledger/internal/repositories"
	"seatledger/internal/services"
	"seatledger/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	env := intconfig.LoadEnv()
	utils.ConfigureLogger(env.LogLevel, env.LogFormat)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		logrus.WithError(err).Fatal("database unavailable")
	}
	defer intconfig.CloseDB(db)

	if env.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := intdb.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			logrus.WithError(err).Fatal("schema migration failed")
		}
	}

	rdb := intconfig.NewRedisClient(env)
	if rdb != nil {
		defer rdb.Close()
	}

	var notifier messaging.Notifier = messaging.LogNotifier{}
	if env.RabbitMQURL != "" {
		notifier = messaging.NewRabbitNotifier(env.RabbitMQURL, env.NotifyQueue)
	}
	defer notifier.Close()

	var broadcaster messaging.Broadcaster = messaging.LogBroadcaster{}
	if len(env.KafkaBrokers) > 0 {
		broadcaster = messaging.NewKafkaBroadcaster(env.KafkaBrokers, env.KafkaTopic)
	}
	defer broadcaster.Close()

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Workers:     env.DispatchWorkers,
		QueueSize:   env.DispatchQueue,
		MaxAttempts: env.DispatchMaxAttempts,
		Backoff:     env.DispatchBackoff,
	})
	dispatcher.Start()

	tiers := services.LoadTierTable(context.Background(), repositories.TierConfigRepo{DB: db})
	engine := services.NewEngine(db, tiers, services.EventSink{
		Dispatcher:  dispatcher,
		Notifier:    notifier,
		Broadcaster: broadcaster,
	}, services.EngineOptions{
		ModifyCutoff:  env.ModifyCutoff,
		MaxGroupSeats: env.MaxGroupSeats,
	})

	if env.RecalcTiersOnStartup {
		checked, changed, err := engine.Loyalty.RecalculateAll(context.Background(), 500)
		if err != nil {
			logrus.WithError(err).Error("tier recalculation failed")
		} else {
			logrus.WithFields(logrus.Fields{"checked": checked, "changed": changed}).Info("tiers recalculated")
		}
	}

	r := router.NewRouter(env, handlers.New(engine, db, env.TombstoneRetention), rdb)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.Infof("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
	if err := dispatcher.Close(ctx); err != nil {
		logrus.WithError(err).Warn("post-commit tasks still pending at shutdown")
	}

	logrus.Info("server stopped")
}
