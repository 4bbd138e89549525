package models

import "time"

// Типы событий, публикуемых сервисом в Kafka
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
	EventOffersSynced   = "offers_synced"
)

// Event событие предметной области для публикации в брокер сообщений
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OffersSyncedPayload полезная нагрузка события offers_synced
type OffersSyncedPayload struct {
	ProductID int64 `json:"product_id"`
	NewOffers int   `json:"new_offers"`
}
