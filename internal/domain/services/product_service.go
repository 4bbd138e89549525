package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	postgres "github.com/athebyme/offers-service/internal/adapters/storage"
	"github.com/athebyme/offers-service/internal/domain/models"
	"github.com/athebyme/offers-service/internal/utils"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/google/uuid"
)

// ProductServiceInterface определяет бизнес-логику работы с товарами
type ProductServiceInterface interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error)
	UpdateProduct(ctx context.Context, productID int64, name, description *string) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
	ListOffers(ctx context.Context, productID int64) ([]*models.Offer, error)
}

// Registrar регистрирует товар во внешнем сервисе предложений
type Registrar interface {
	RegisterProduct(ctx context.Context, id int64, name, description string) error
}

// ProductService предоставляет бизнес-логику для работы с товарами.
// Создание товара регистрирует его во внешнем сервисе предложений;
// обновление и удаление наружу не транслируются.
type ProductService struct {
	storage   postgres.StoragePort
	cache     interfaces.CachePort
	messaging interfaces.MessagingPort
	registrar Registrar
	logger    interfaces.LoggerPort

	cacheTTL time.Duration
	topic    string
}

// NewProductService создает новый экземпляр ProductService
func NewProductService(
	storage postgres.StoragePort,
	cache interfaces.CachePort,
	messaging interfaces.MessagingPort,
	registrar Registrar,
	logger interfaces.LoggerPort,
	cacheTTL time.Duration,
	topic string,
) *ProductService {
	return &ProductService{
		storage:   storage,
		cache:     cache,
		messaging: messaging,
		registrar: registrar,
		logger:    logger,
		cacheTTL:  cacheTTL,
		topic:     topic,
	}
}

func productCacheKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// CreateProduct создает новый товар и регистрирует его во внешнем сервисе
// предложений. Ошибка регистрации не откатывает создание: товар останется
// локально, повторная регистрация возможна позже.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID <= 0 {
		return nil, utils.ErrInvalidProductId
	}
	if product.Name == "" {
		return nil, utils.ErrInvalidProductId
	}

	existing, err := s.storage.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing product: %w", err)
	}
	if existing != nil {
		return nil, utils.ErrProductExists
	}

	txCtx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.storage.SaveProduct(txCtx, product); err != nil {
		s.storage.RollbackTx(txCtx)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	if err := s.storage.CommitTx(txCtx); err != nil {
		s.storage.RollbackTx(txCtx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.registrar != nil {
		if err := s.registrar.RegisterProduct(ctx, product.ID, product.Name, product.Description); err != nil {
			s.logger.ErrorWithContext(ctx, "Не удалось зарегистрировать товар в сервисе предложений",
				interfaces.LogField{Key: "product_id", Value: product.ID},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	s.publishEvent(ctx, models.EventProductCreated, product)
	s.cacheProduct(ctx, product)

	return product, nil
}

// GetProduct возвращает товар по ID. Сначала проверяется кэш,
// при промахе товар читается из БД и кэшируется.
func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, utils.ErrInvalidProductId
	}

	if s.cache != nil {
		data, err := s.cache.Get(ctx, productCacheKey(productID))
		if err == nil {
			var product models.Product
			if err := json.Unmarshal(data, &product); err == nil {
				return &product, nil
			}
		} else if !errors.Is(err, interfaces.ErrCacheMiss) {
			s.logger.WarnWithContext(ctx, "Ошибка чтения из кэша",
				interfaces.LogField{Key: "product_id", Value: productID},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, utils.ErrProductNotFound
	}

	s.cacheProduct(ctx, product)
	return product, nil
}

// ListProducts возвращает страницу товаров и общее количество записей
func (s *ProductService) ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error) {
	products, total, err := s.storage.ListProducts(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// UpdateProduct обновляет имя и/или описание товара. Хотя бы одно из полей
// должно быть задано. Во внешний сервис обновление не транслируется.
func (s *ProductService) UpdateProduct(ctx context.Context, productID int64, name, description *string) (*models.Product, error) {
	if productID <= 0 {
		return nil, utils.ErrInvalidProductId
	}
	if name == nil && description == nil {
		return nil, utils.ErrEmptyUpdate
	}

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing product: %w", err)
	}
	if product == nil {
		return nil, utils.ErrProductNotFound
	}

	if name != nil {
		product.Name = *name
	}
	if description != nil {
		product.Description = *description
	}

	if err := s.storage.SaveProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateProduct(ctx, productID)
	s.publishEvent(ctx, models.EventProductUpdated, product)

	return product, nil
}

// DeleteProduct удаляет товар вместе с его предложениями.
// Во внешнем сервисе товар остается зарегистрированным.
func (s *ProductService) DeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return utils.ErrInvalidProductId
	}

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get existing product: %w", err)
	}
	if product == nil {
		return utils.ErrProductNotFound
	}

	if err := s.storage.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.invalidateProduct(ctx, productID)
	s.publishEvent(ctx, models.EventProductDeleted, product)

	return nil
}

// ListOffers возвращает синхронизированные предложения товара
func (s *ProductService) ListOffers(ctx context.Context, productID int64) ([]*models.Offer, error) {
	if productID <= 0 {
		return nil, utils.ErrInvalidProductId
	}

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, utils.ErrProductNotFound
	}

	offers, err := s.storage.ListOffers(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// cacheProduct кэширует товар; ошибка кэширования только логируется
func (s *ProductService) cacheProduct(ctx context.Context, product *models.Product) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(product)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, productCacheKey(product.ID), data, s.cacheTTL); err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка записи в кэш",
			interfaces.LogField{Key: "product_id", Value: product.ID},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}

// invalidateProduct удаляет товар из кэша
func (s *ProductService) invalidateProduct(ctx context.Context, productID int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, productCacheKey(productID)); err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка удаления из кэша",
			interfaces.LogField{Key: "product_id", Value: productID},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}

// publishEvent публикует событие изменения товара; ошибка публикации
// только логируется
func (s *ProductService) publishEvent(ctx context.Context, eventType string, product *models.Product) {
	if s.messaging == nil {
		return
	}

	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   product,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	key := fmt.Sprintf("%d", product.ID)
	if err := s.messaging.Publish(ctx, s.topic, key, data); err != nil {
		s.logger.ErrorWithContext(ctx, "Не удалось опубликовать событие товара",
			interfaces.LogField{Key: "event_type", Value: eventType},
			interfaces.LogField{Key: "product_id", Value: product.ID},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}
