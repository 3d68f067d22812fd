package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus описывает состояние платежа по заказу.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж инициирован, но не подтверждён.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusAccepted — провайдер подтвердил списание.
	PaymentStatusAccepted PaymentStatus = "accepted"
	// PaymentStatusDeclined — провайдер отклонил платёж.
	PaymentStatusDeclined PaymentStatus = "declined"
)

// Payment — запись о платеже, связанная с заказом. Оплата — best-effort
// побочный поток: её неуспех не откатывает заказ и не трогает остатки.
type Payment struct {
	ID      string
	OrderID string
	Method  PaymentMethod
	Status  PaymentStatus
	Amount  decimal.Decimal
	// Reference — внешний идентификатор от провайдера; может быть пустым.
	Reference string
	CreatedAt time.Time
}

// Validate проверяет корректность полей платежа.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrPaymentOrderRequired)
	}
	if p.Amount.IsNegative() {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}
