package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intellifit/gym-core/internal/availability"
	"github.com/intellifit/gym-core/internal/config"
	"github.com/intellifit/gym-core/internal/db"
	"github.com/intellifit/gym-core/internal/httpapi"
	"github.com/intellifit/gym-core/internal/infra/logger"
	"github.com/intellifit/gym-core/internal/ledger"
	"github.com/intellifit/gym-core/internal/model"
	"github.com/intellifit/gym-core/internal/notify"
	"github.com/intellifit/gym-core/internal/repository"
	"github.com/intellifit/gym-core/internal/service"
)

func main() {
	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = "config/example.yaml"
	}

	// 1. Конфиг и логгеры.
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.InitLoggers(cfg.App.LogDir); err != nil {
		panic(err)
	}
	log := logger.InfoLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Подключаемся к БД через GORM.
	gormDB, err := db.NewGormDB(cfg)
	if err != nil {
		logger.ErrorLogger.WithError(err).Error("init db failed")
		return
	}

	// 3. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		logger.ErrorLogger.WithError(err).Error("auto migrate failed")
		return
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.ErrorLogger.WithError(err).Error("sql DB failed")
		return
	}
	defer sqlDB.Close()
	log.Info("db connected, migrations applied")

	// 4. Репозитории (реализации на GORM).
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	resourceRepo := repository.NewGormResourceRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)

	// 5. Шина уведомлений (best-effort: без неё работаем с заглушкой).
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.ErrorLogger.WithError(err).Error("amqp connect failed, notifications disabled")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	// 6. Сервисы движка.
	ledgerSvc := ledger.New(gormDB)
	availIndex := availability.NewIndex(resourceRepo, bookingRepo)
	bookingSvc := service.NewBookingService(bookingRepo, eventRepo, availIndex, ledgerSvc, publisher, service.Options{
		BillingUnit:  time.Duration(cfg.Booking.BillingUnitMinutes) * time.Minute,
		CheckInGrace: time.Duration(cfg.Booking.CheckInGraceMinutes) * time.Minute,
	})

	// 7. Фоновая очистка просроченных бронирований.
	sweeper := service.NewSweeper(bookingSvc, time.Duration(cfg.Booking.CleanupIntervalMinutes)*time.Minute)
	go sweeper.Run(ctx)

	// 8. HTTP-сервер.
	router := httpapi.NewRouter(httpapi.NewHandler(bookingSvc, ledgerSvc, resourceRepo, eventRepo), cfg.Metrics.Enabled)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.WithError(err).Error("http server error")
		}
	}()
	log.WithField("addr", cfg.HTTP.Addr).Info("HTTP server started")

	// 9. Грейсфул-шатдаун по сигналу.
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
