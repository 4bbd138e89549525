package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, когда ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache miss")

// CachePort определяет интерфейс для работы с кэшем
// Реализация может использовать любое хранилище (Redis, Memcached и т.д.)
type CachePort interface {
	// Get возвращает значение по ключу или ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение по ключу с заданным сроком действия
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значение по ключу
	Delete(ctx context.Context, key string) error

	// Close закрывает соединение с кэшем
	Close() error
}
