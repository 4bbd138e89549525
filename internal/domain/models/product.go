package models

import "time"

// Product представляет модель товара, отслеживаемого сервисом.
// Идентификатор товара общий для локальной базы и внешнего сервиса предложений.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
