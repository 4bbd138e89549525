package models

import "time"

// Offer представляет локальную запись предложения, созданную синхронизацией.
// RemoteID — идентификатор предложения во внешнем сервисе; по нему
// выполняется дедупликация, дубликаты для одного товара не допускаются.
type Offer struct {
	ID           int64     `db:"id" json:"id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	RemoteID     int64     `db:"remote_id" json:"remote_id"`
	Price        int64     `db:"price" json:"price"`
	ItemsInStock int64     `db:"items_in_stock" json:"items_in_stock"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RemoteOffer представляет предложение в том виде, в котором его возвращает
// внешний сервис. Поля объявлены указателями, чтобы отличать отсутствующее
// поле от нулевого значения: запись без id, price или items_in_stock
// считается некорректной и отбрасывается до сравнения с локальными данными.
type RemoteOffer struct {
	ID           *int64 `json:"id"`
	Price        *int64 `json:"price"`
	ItemsInStock *int64 `json:"items_in_stock"`
}

// Valid сообщает, содержит ли запись все обязательные поля
func (o RemoteOffer) Valid() bool {
	return o.ID != nil && o.Price != nil && o.ItemsInStock != nil
}
