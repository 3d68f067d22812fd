package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentResult — ответ платёжного провайдера.
type PaymentResult struct {
	Status    PaymentStatus
	Reference string
}

// PaymentService описывает взаимодействие с платёжным провайдером.
type PaymentService interface {
	// Process инициирует списание средств по заказу.
	Process(orderID string, amount decimal.Decimal, method PaymentMethod) (PaymentResult, error)
	// Supports сообщает, обслуживает ли провайдер данный метод оплаты.
	Supports(method PaymentMethod) bool
}

// CheckoutStore выполняет транзакционные шаги оформления и отмены заказа.
// Обе операции атомарны: либо фиксируются все списания/возвраты остатков
// вместе с записью заказа и событиями, либо ничего.
type CheckoutStore interface {
	// PlaceOrder в одной транзакции: условно списывает остаток по каждой
	// позиции (отказ — ErrInsufficientStock/ErrProductUnavailable, без
	// частичных списаний), сохраняет заказ (ErrOrderNumberConflict при
	// коллизии номера), опустошает корзину покупателя и ставит события
	// в outbox.
	PlaceOrder(ctx context.Context, order Order, events []OutboxMessage) error
	// CancelOrder в одной транзакции возвращает остатки по позициям заказа,
	// сохраняет заказ в статусе cancelled и ставит события в outbox.
	CancelOrder(ctx context.Context, order Order, events []OutboxMessage) error
	// SaveOrder в одной транзакции сохраняет заказ (без изменения остатков)
	// и ставит события в outbox. Используется для переходов статуса.
	SaveOrder(ctx context.Context, order Order, events []OutboxMessage) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// StatusHistoryRepository хранит события смены статуса заказа.
type StatusHistoryRepository interface {
	Append(event StatusEvent) error
	List(orderID string) ([]StatusEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// StatusEvent — запись истории статусов заказа.
type StatusEvent struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	// Actor — кто инициировал переход: покупатель, производитель, система.
	Actor    string
	Occurred time.Time
}
