package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/offers-service/internal/domain/models"
	"github.com/athebyme/offers-service/internal/offers"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_sync_cycles_total",
		Help: "Количество циклов синхронизации предложений",
	}, []string{"status"})

	syncedOffers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_synced_total",
		Help: "Количество новых предложений, сохраненных при синхронизации",
	})

	productFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offers_sync_product_failures_total",
		Help: "Количество товаров, пропущенных в цикле из-за ошибок",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offers_sync_cycle_duration_seconds",
		Help:    "Длительность одного цикла синхронизации",
		Buckets: prometheus.DefBuckets,
	})
)

// Storage хранилище, используемое синхронизатором. Все записи цикла
// выполняются в одной транзакции: транзакция открывается перед обходом
// товаров и фиксируется после него.
type Storage interface {
	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
	AllProducts(ctx context.Context) ([]models.Product, error)
	ListOfferRemoteIDs(ctx context.Context, productID int64) ([]int64, error)
	SaveOffer(ctx context.Context, offer *models.Offer) error
}

// Catalog подмножество клиента сервиса предложений, нужное синхронизатору
type Catalog interface {
	ProductOffers(ctx context.Context, productID int64) ([]models.RemoteOffer, error)
	Authenticate(ctx context.Context) (string, error)
}

// Syncer периодически сверяет предложения всех товаров с внешним сервисом
// и сохраняет новые. Ошибка по одному товару не прерывает цикл: товар
// пропускается, остальные обрабатываются.
type Syncer struct {
	storage   Storage
	catalog   Catalog
	messaging interfaces.MessagingPort
	logger    interfaces.LoggerPort
	interval  time.Duration
	topic     string
}

// NewSyncer создает новый синхронизатор предложений
func NewSyncer(
	storage Storage,
	catalog Catalog,
	messaging interfaces.MessagingPort,
	logger interfaces.LoggerPort,
	interval time.Duration,
	topic string,
) *Syncer {
	return &Syncer{
		storage:   storage,
		catalog:   catalog,
		messaging: messaging,
		logger:    logger,
		interval:  interval,
		topic:     topic,
	}
}

// Run запускает цикл синхронизации с заданным интервалом.
// Первый цикл выполняется сразу, не дожидаясь тика.
// Возвращается после отмены контекста.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("Синхронизация предложений запущена",
		interfaces.LogField{Key: "interval", Value: s.interval.String()})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("Синхронизация предложений остановлена")
				return
			}
			syncCycles.WithLabelValues("error").Inc()
			s.logger.Error("Цикл синхронизации завершился с ошибкой",
				interfaces.LogField{Key: "error", Value: err.Error()})
		} else {
			syncCycles.WithLabelValues("ok").Inc()
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Синхронизация предложений остановлена")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce выполняет один цикл синхронизации: обходит все товары,
// запрашивает их предложения, определяет новые и сохраняет их
// в одной транзакции.
func (s *Syncer) RunOnce(ctx context.Context) error {
	started := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(started).Seconds())
	}()

	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("открытие транзакции: %w", err)
	}

	saved, err := s.syncAll(txCtx)
	if err != nil {
		if rbErr := s.storage.RollbackTx(txCtx); rbErr != nil {
			s.logger.Error("Не удалось откатить транзакцию",
				interfaces.LogField{Key: "error", Value: rbErr.Error()})
		}
		return err
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	syncedOffers.Add(float64(total(saved)))
	s.publishEvents(ctx, saved)

	s.logger.Info("Цикл синхронизации завершен",
		interfaces.LogField{Key: "new_offers", Value: total(saved)},
		interfaces.LogField{Key: "duration", Value: time.Since(started).String()})
	return nil
}

// syncAll обходит все товары внутри транзакции txCtx.
// Возвращает количество сохраненных предложений по товарам.
func (s *Syncer) syncAll(txCtx context.Context) (map[int64]int, error) {
	products, err := s.storage.AllProducts(txCtx)
	if err != nil {
		return nil, fmt.Errorf("получение списка товаров: %w", err)
	}

	saved := make(map[int64]int)
	reauthed := false

	for _, product := range products {
		if err := txCtx.Err(); err != nil {
			return nil, err
		}

		remote, err := s.catalog.ProductOffers(txCtx, product.ID)
		if err != nil && offers.IsKind(err, offers.KindUnauthorized) && !reauthed {
			// Токен мог быть отозван; аутентифицируемся заново
			// и повторяем товар один раз за цикл
			reauthed = true
			if _, authErr := s.catalog.Authenticate(txCtx); authErr != nil {
				return nil, fmt.Errorf("повторная аутентификация: %w", authErr)
			}
			remote, err = s.catalog.ProductOffers(txCtx, product.ID)
		}
		if err != nil {
			productFailures.Inc()
			s.logger.Warn("Товар пропущен в цикле синхронизации",
				interfaces.LogField{Key: "product_id", Value: product.ID},
				interfaces.LogField{Key: "error", Value: err.Error()})
			continue
		}

		localIDs, err := s.storage.ListOfferRemoteIDs(txCtx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("получение предложений товара %d: %w", product.ID, err)
		}

		for _, offer := range Reconcile(localIDs, remote) {
			record := &models.Offer{
				ProductID:    product.ID,
				RemoteID:     *offer.ID,
				Price:        *offer.Price,
				ItemsInStock: *offer.ItemsInStock,
			}
			if err := s.storage.SaveOffer(txCtx, record); err != nil {
				return nil, fmt.Errorf("сохранение предложения %d товара %d: %w",
					record.RemoteID, product.ID, err)
			}
			saved[product.ID]++
		}
	}

	return saved, nil
}

// publishEvents публикует события offers_synced для товаров,
// получивших новые предложения. Публикация выполняется после фиксации
// транзакции; ошибка публикации цикл не откатывает.
func (s *Syncer) publishEvents(ctx context.Context, saved map[int64]int) {
	if s.messaging == nil {
		return
	}

	for productID, count := range saved {
		if count == 0 {
			continue
		}

		event := models.Event{
			ID:        uuid.New().String(),
			Type:      models.EventOffersSynced,
			Timestamp: time.Now().UTC(),
			Payload:   models.OffersSyncedPayload{ProductID: productID, NewOffers: count},
		}

		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("Не удалось сериализовать событие синхронизации",
				interfaces.LogField{Key: "error", Value: err.Error()})
			continue
		}

		key := fmt.Sprintf("%d", productID)
		if err := s.messaging.Publish(ctx, s.topic, key, data); err != nil {
			s.logger.Error("Не удалось опубликовать событие синхронизации",
				interfaces.LogField{Key: "product_id", Value: productID},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
}

func total(saved map[int64]int) int {
	sum := 0
	for _, n := range saved {
		sum += n
	}
	return sum
}
