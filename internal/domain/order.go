package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/pricing"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидает подтверждения производителем.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing — заказ собирается.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusShipped — заказ передан в доставку; отмена более невозможна.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — терминальный успешный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — терминальный статус отмены.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusTransitions — допустимые переходы машины состояний заказа.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// Valid сообщает, известен ли статус машине состояний.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryAddress — адрес доставки, копируется в заказ из запроса оформления,
// а не хранится ссылкой.
type DeliveryAddress struct {
	Street       string
	City         string
	PostalCode   string
	Country      string
	Phone        string
	Instructions string
}

// PaymentMethod — выбранный способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// OrderItem — позиция заказа. Имя и описание товара — снапшот на момент
// оформления; он никогда не обновляется из живого каталога, чтобы история
// оставалась точной после переименования или удаления товара.
type OrderItem struct {
	ID         string
	ProductID  string
	ProducerID string
	// ProductName и ProductDescription — замороженная копия каталога.
	ProductName        string
	ProductDescription string
	Quantity           int32
	UnitPrice          decimal.Decimal
	LineTotal          decimal.Decimal
	CreatedAt          time.Time
}

// Order — неизменяемый результат оформления корзины. После создания меняются
// только статус и отметки доставки; денежные поля заморожены.
type Order struct {
	ID string
	// Number — человекочитаемый уникальный номер заказа.
	Number  string
	BuyerID string
	Status  OrderStatus
	Items   []OrderItem

	PaymentMethod PaymentMethod
	PromoCode     string
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal

	Address   DeliveryAddress
	ItemCount int

	EstimatedDelivery time.Time
	DeliveredAt       *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransitionTo переводит заказ в новый статус, проверяя машину состояний.
// Переход в delivered проставляет фактическую дату доставки.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return ErrInvalidStatusTransition
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}

	o.Status = next
	o.UpdatedAt = now
	if next == OrderStatusDelivered {
		delivered := now
		o.DeliveredAt = &delivered
	}
	return nil
}

// Cancellable сообщает, допускает ли текущий статус отмену покупателем.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending ||
		o.Status == OrderStatusConfirmed ||
		o.Status == OrderStatusPreparing
}

// ContainsProducer проверяет, есть ли в заказе товары данного производителя.
// Используется как проверка принадлежности при смене статуса.
func (o *Order) ContainsProducer(producerID string) bool {
	for _, item := range o.Items {
		if item.ProducerID == producerID {
			return true
		}
	}
	return false
}

// Recompute восстанавливает замороженные итоги из позиций. Вызывается ровно
// один раз — при конструировании заказа.
func (o *Order) Recompute() error {
	lines := make([]pricing.Line, 0, len(o.Items))
	for idx := range o.Items {
		o.Items[idx].LineTotal = pricing.LineTotal(o.Items[idx].UnitPrice, o.Items[idx].Quantity)
		lines = append(lines, pricing.Line{UnitPrice: o.Items[idx].UnitPrice, Quantity: o.Items[idx].Quantity})
	}

	totals, err := pricing.Compute(lines, o.PromoCode)
	o.Subtotal = totals.Subtotal
	o.Shipping = totals.Shipping
	o.Discount = totals.Discount
	o.Total = totals.Total
	o.ItemCount = len(o.Items)
	return err
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список
// замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.BuyerID == "" {
		errs = append(errs, ErrBuyerRequired)
	}
	if o.Number == "" {
		errs = append(errs, ErrOrderNumberRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	subtotal := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !item.LineTotal.Equal(pricing.LineTotal(item.UnitPrice, item.Quantity)) {
			errs = append(errs, ErrLineTotalMismatch)
		}
		subtotal = subtotal.Add(item.LineTotal)
	}

	// Сверяем замороженные итоги: total = subtotal + shipping - discount.
	if !o.Subtotal.Equal(subtotal) ||
		!o.Total.Equal(o.Subtotal.Add(o.Shipping).Sub(o.Discount)) ||
		o.Total.IsNegative() {
		errs = append(errs, ErrTotalsMismatch)
	}

	return errs
}
