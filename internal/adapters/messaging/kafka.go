package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaMessaging реализация MessagingPort с использованием Kafka.
// Сервис только публикует события, потребителей у него нет.
type KafkaMessaging struct {
	producer *kafka.Producer
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers []string) (interfaces.MessagingPort, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            strings.Join(brokers, ","),
		"client.id":                    "offers-service-producer",
		"acks":                         "all", // максимальная надежность
		"retries":                      5,
		"retry.backoff.ms":             500,
		"compression.type":             "snappy",
		"linger.ms":                    10, // небольшая задержка для батчинга
		"batch.size":                   16384,
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 100000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	return &KafkaMessaging{producer: producer}, nil
}

// Publish публикует сообщение в указанную тему и дожидается
// подтверждения доставки или отмены контекста
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, key string, message []byte) error {
	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            keyBytes,
		Value:          message,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(uuid.New().String())},
			{Key: "timestamp", Value: []byte(fmt.Sprintf("%d", time.Now().UnixNano()))},
		},
	}

	delivery := make(chan kafka.Event, 1)
	if err := k.producer.Produce(msg, delivery); err != nil {
		return fmt.Errorf("ошибка публикации в топик %s: %w", topic, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("неожиданное событие доставки: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("ошибка доставки в топик %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	}
}

// Close закрывает соединение с брокером
func (k *KafkaMessaging) Close() error {
	k.producer.Flush(15 * 1000) // Ждем до 15 секунд для отправки всех сообщений
	k.producer.Close()
	return nil
}
