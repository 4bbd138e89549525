package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/athebyme/offers-service/config"
	"github.com/athebyme/offers-service/internal/adapters/logger"
	"github.com/athebyme/offers-service/internal/adapters/messaging"
	postgres "github.com/athebyme/offers-service/internal/adapters/storage"
	"github.com/athebyme/offers-service/internal/offers"
	"github.com/athebyme/offers-service/internal/syncer"
	"github.com/athebyme/offers-service/internal/utils"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	// HTTP сервер для метрик, если они включены
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			})

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: addr})

			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	repo, err := postgres.NewStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer repo.Close()
	log.Info("Хранилище инициализировано")

	messagingClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	offersClient := offers.NewClient(cfg.Offers.BaseURL, cfg.Offers.Timeout, repo)
	if err := offersClient.EnsureToken(ctx); err != nil {
		log.Fatal("Ошибка получения токена сервиса предложений",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Клиент сервиса предложений инициализирован")

	offersSyncer := syncer.NewSyncer(
		repo,
		offersClient,
		messagingClient,
		log,
		cfg.Sync.Interval,
		cfg.Kafka.OffersTopic,
	)

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		offersSyncer.Run(ctx)
		close(done)
	}()

	<-quit
	log.Info("Получен сигнал завершения, остановка синхронизации...")
	cancel()

	<-done
	log.Info("Воркер корректно завершил работу")
}
