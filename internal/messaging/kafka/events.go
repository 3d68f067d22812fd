package kafka

import "time"

// EventType определяет тип публикуемого события.
type EventType string

const (
	// Order события.
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"

	// Payment события.
	EventTypePaymentRecorded EventType = "payment.recorded"
)

// Topics для Kafka.
const (
	TopicOrderEvents     = "agriconnect.order.events"
	TopicPaymentEvents   = "agriconnect.payment.events"
	TopicDeadLetterQueue = "agriconnect.dlq"
)

// Типы агрегатов для outbox-сообщений: по ним publisher выбирает topic.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
)

// OrderEvent — полезная нагрузка события жизненного цикла заказа.
type OrderEvent struct {
	EventType   EventType `json:"event_type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	Status      string    `json:"status"`
	Total       string    `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentEvent — полезная нагрузка события платежа.
type PaymentEvent struct {
	EventType EventType `json:"event_type"`
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
