package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/offers-service/internal/domain/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StorageInterface определяет интерфейс взаимодействия с хранилищем PostgreSQL
type StorageInterface interface {
	// Product методы
	SaveProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error

	// Offer методы
	SaveOffer(ctx context.Context, offer *models.Offer) error
	ListOffers(ctx context.Context, productID int64) ([]*models.Offer, error)
	ListOfferRemoteIDs(ctx context.Context, productID int64) ([]int64, error)

	// Setting методы
	GetSetting(ctx context.Context, name string) (string, error)
	SetSetting(ctx context.Context, name, value string) error
}

type StoragePort interface {
	StorageInterface

	BeginTx(ctx context.Context) (context.Context, error)

	CommitTx(ctx context.Context) error

	RollbackTx(ctx context.Context) error

	Close() error
}

// Имя настройки, в которой хранится токен доступа к сервису предложений
const accessTokenSetting = "access_token"

// contextKey тип для ключей контекста
type contextKey string

// Ключи контекста
const (
	txKey contextKey = "transaction"
)

// Storage реализация интерфейса хранилища для PostgreSQL
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage создает новое хранилище PostgreSQL
func NewStorage(ctx context.Context, connectionString string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// NewStorageWithPool создает хранилище поверх готового пула соединений
func NewStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*Storage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Storage{pool: pool}, nil
}

// Close закрывает соединение с БД
func (r *Storage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *Storage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx // pgx.Tx реализует нужные методы
	}
	return r.pool // *pgxpool.Pool тоже реализует нужные методы
}

// getTx получает транзакцию из контекста
func (r *Storage) getTx(ctx context.Context) pgx.Tx {
	txFromCtx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return txFromCtx
}

// BeginTx начинает новую транзакцию
func (r *Storage) BeginTx(ctx context.Context) (context.Context, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey, tx), nil
}

// CommitTx фиксирует транзакцию
func (r *Storage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *Storage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

// SaveProduct сохраняет товар. Повторная вставка с тем же id
// обновляет имя и описание.
func (r *Storage) SaveProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			name = $2,
			description = $3,
			updated_at = $5
	`

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := r.getExecutor(ctx).Exec(ctx, query,
		product.ID, product.Name, product.Description, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetProduct получает товар по ID. Возвращает nil, если товар не найден.
func (r *Storage) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	row := r.getExecutor(ctx).QueryRow(ctx, query, productID)
	err := row.Scan(&product.ID, &product.Name, &product.Description,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Товар не найден
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// ListProducts возвращает страницу товаров и общее количество записей
func (r *Storage) ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error) {
	executor := r.getExecutor(ctx)

	var total int
	if err := executor.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	if total == 0 {
		return []*models.Product{}, 0, nil
	}

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := executor.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(&product.ID, &product.Name, &product.Description,
			&product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, &product)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("error while iterating product rows: %w", rows.Err())
	}

	return products, total, nil
}

// AllProducts возвращает все товары без пагинации; используется
// циклом синхронизации предложений
func (r *Storage) AllProducts(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM products
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(&product.ID, &product.Name, &product.Description,
			&product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, product)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating product rows: %w", rows.Err())
	}

	return products, nil
}

// DeleteProduct удаляет товар и его предложения
func (r *Storage) DeleteProduct(ctx context.Context, productID int64) error {
	executor := r.getExecutor(ctx)

	if _, err := executor.Exec(ctx, `DELETE FROM offers WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete product offers: %w", err)
	}

	if _, err := executor.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

// SaveOffer сохраняет новое предложение. Пара (product_id, remote_id)
// уникальна; повторная вставка того же предложения игнорируется.
func (r *Storage) SaveOffer(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (product_id, remote_id, price, items_in_stock, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, remote_id) DO NOTHING
	`

	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now().UTC()
	}

	_, err := r.getExecutor(ctx).Exec(ctx, query,
		offer.ProductID, offer.RemoteID, offer.Price, offer.ItemsInStock, offer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}
	return nil
}

// ListOffers возвращает все предложения товара
func (r *Storage) ListOffers(ctx context.Context, productID int64) ([]*models.Offer, error) {
	query := `
		SELECT id, product_id, remote_id, price, items_in_stock, created_at
		FROM offers
		WHERE product_id = $1
		ORDER BY remote_id
	`

	rows, err := r.getExecutor(ctx).Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []*models.Offer
	for rows.Next() {
		var offer models.Offer
		err := rows.Scan(&offer.ID, &offer.ProductID, &offer.RemoteID,
			&offer.Price, &offer.ItemsInStock, &offer.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer row: %w", err)
		}
		offers = append(offers, &offer)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating offer rows: %w", rows.Err())
	}

	return offers, nil
}

// ListOfferRemoteIDs возвращает внешние идентификаторы предложений товара
// по возрастанию; порядок важен для двоичного поиска при сверке
func (r *Storage) ListOfferRemoteIDs(ctx context.Context, productID int64) ([]int64, error) {
	query := `
		SELECT remote_id
		FROM offers
		WHERE product_id = $1
		ORDER BY remote_id
	`

	rows, err := r.getExecutor(ctx).Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offer ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan offer id: %w", err)
		}
		ids = append(ids, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating offer ids: %w", rows.Err())
	}

	return ids, nil
}

// GetSetting возвращает значение настройки по имени.
// Отсутствующая настройка — пустая строка без ошибки.
func (r *Storage) GetSetting(ctx context.Context, name string) (string, error) {
	query := `SELECT value FROM settings WHERE name = $1`

	var value string
	err := r.getExecutor(ctx).QueryRow(ctx, query, name).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

// SetSetting сохраняет значение настройки, перезаписывая существующее
func (r *Storage) SetSetting(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO settings (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET value = $2
	`

	if _, err := r.getExecutor(ctx).Exec(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// LoadToken читает токен доступа к сервису предложений из настроек
func (r *Storage) LoadToken(ctx context.Context) (string, error) {
	return r.GetSetting(ctx, accessTokenSetting)
}

// SaveToken сохраняет токен доступа к сервису предложений в настройках
func (r *Storage) SaveToken(ctx context.Context, token string) error {
	return r.SetSetting(ctx, accessTokenSetting, token)
}
