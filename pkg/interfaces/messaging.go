package interfaces

import "context"

// MessagingPort определяет интерфейс для публикации доменных событий
// Реализация может использовать любого брокера (Kafka, NATS и т.д.)
type MessagingPort interface {
	// Publish публикует сообщение в указанную тему
	Publish(ctx context.Context, topic string, key string, message []byte) error

	// Close закрывает соединение с брокером
	Close() error
}
