package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/cybernerd/agriconnect/internal/domain"
	"github.com/cybernerd/agriconnect/internal/messaging/kafka"
	"github.com/cybernerd/agriconnect/internal/metrics"
)

const (
	// estimatedDeliveryDelay — плановый срок доставки от момента оформления.
	estimatedDeliveryDelay = 72 * time.Hour
	// maxNumberAttempts — число попыток перегенерации номера заказа при
	// коллизии уникальности.
	maxNumberAttempts = 3
)

// CheckoutRequest — данные оформления заказа: способ оплаты и адрес доставки.
// Адрес копируется в заказ, а не хранится ссылкой.
type CheckoutRequest struct {
	PaymentMethod domain.PaymentMethod
	Address       domain.DeliveryAddress
}

// Service описывает операции жизненного цикла заказа.
type Service interface {
	// Checkout атомарно превращает корзину покупателя в заказ: повторная
	// проверка остатков, снапшот позиций, списание остатков, опустошение
	// корзины. Всё или ничего.
	Checkout(ctx context.Context, buyerID string, req CheckoutRequest) (domain.Order, error)
	// UpdateStatus переводит заказ в новый статус от имени производителя,
	// чьи товары есть в заказе.
	UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, producerID string) (domain.Order, error)
	// Cancel отменяет заказ от имени его покупателя и возвращает остатки.
	Cancel(ctx context.Context, orderID, buyerID string) (domain.Order, error)
	// Get возвращает заказ по идентификатору.
	Get(orderID string) (domain.Order, error)
	// GetByNumber возвращает заказ по человекочитаемому номеру.
	GetByNumber(number string) (domain.Order, error)
	// StatusHistory возвращает журнал смен статуса заказа.
	StatusHistory(orderID string) ([]domain.StatusEvent, error)
	// ListByBuyer возвращает страницу заказов покупателя.
	ListByBuyer(buyerID string, page domain.PageRequest) (domain.OrderPage, error)
	// ListByProducer возвращает страницу заказов с товарами производителя.
	ListByProducer(producerID string, page domain.PageRequest) (domain.OrderPage, error)
	// ListRecent возвращает страницу последних заказов площадки.
	ListRecent(page domain.PageRequest) (domain.OrderPage, error)
	// Search возвращает страницу заказов по фильтру.
	Search(filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error)
	// RecordPayment проводит best-effort оплату заказа: результат провайдера
	// фиксируется записью о платеже, неуспех не трогает заказ и остатки.
	RecordPayment(orderID string, method domain.PaymentMethod) (domain.Payment, error)
	// AnalyticsForProducer агрегирует замороженные итоги заказов
	// производителя за период.
	AnalyticsForProducer(producerID string, period Period) (ProducerAnalytics, error)
	// Statistics агрегирует заказы всей площадки.
	Statistics() (MarketStatistics, error)
}

type service struct {
	accounts domain.AccountRepository
	products domain.ProductRepository
	carts    domain.CartRepository
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	history  domain.StatusHistoryRepository
	outbox   domain.OutboxRepository
	store    domain.CheckoutStore
	provider domain.PaymentService
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	accounts domain.AccountRepository,
	products domain.ProductRepository,
	carts domain.CartRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	history domain.StatusHistoryRepository,
	outbox domain.OutboxRepository,
	store domain.CheckoutStore,
	provider domain.PaymentService,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "order")
	}
	return &service{
		accounts: accounts,
		products: products,
		carts:    carts,
		orders:   orders,
		payments: payments,
		history:  history,
		outbox:   outbox,
		store:    store,
		provider: provider,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	accounts domain.AccountRepository,
	products domain.ProductRepository,
	carts domain.CartRepository,
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	history domain.StatusHistoryRepository,
	outbox domain.OutboxRepository,
	store domain.CheckoutStore,
	provider domain.PaymentService,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "order")
	}
	return &service{
		accounts: accounts,
		products: products,
		carts:    carts,
		orders:   orders,
		payments: payments,
		history:  history,
		outbox:   outbox,
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Checkout выполняет оформление заказа из корзины покупателя.
func (s *service) Checkout(ctx context.Context, buyerID string, req CheckoutRequest) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	order, err := s.checkout(ctx, buyerID, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutFailed()
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductUnavailable) {
				s.metrics.RecordStockConflict()
			}
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutCompleted()
	}
	return order, nil
}

func (s *service) checkout(ctx context.Context, buyerID string, req CheckoutRequest) (domain.Order, error) {
	if !supportedMethod(req.PaymentMethod) {
		return domain.Order{}, domain.ErrPaymentMethodUnsupported
	}

	account, err := s.accounts.Get(buyerID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Order{}, domain.ErrBuyerNotFound
		}
		return domain.Order{}, fmt.Errorf("load buyer: %w", err)
	}
	if !account.IsBuyer() {
		return domain.Order{}, domain.ErrBuyerNotFound
	}

	cart, err := s.carts.GetByBuyer(buyerID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.Order{}, domain.ErrEmptyCart
		}
		return domain.Order{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}

	// Повторная проверка доступности: корзина могла устареть между
	// наполнением и оформлением.
	items, err := s.snapshotItems(cart)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:                uuid.NewString(),
		BuyerID:           buyerID,
		Status:            domain.OrderStatusPending,
		Items:             items,
		PaymentMethod:     req.PaymentMethod,
		PromoCode:         cart.PromoCode,
		Address:           req.Address,
		EstimatedDelivery: now.Add(estimatedDeliveryDelay),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.Number = newOrderNumber()
	if err := order.Recompute(); err != nil {
		// Итоги уже ограничены нулём; расхождение фиксируем как дефект.
		s.logger.WithError(err).WithField("order_id", order.ID).Error("order totals inconsistency")
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		for _, e := range errs {
			s.logger.WithError(e).WithField("order_id", order.ID).Error("order invariant violated")
		}
		return domain.Order{}, errs[0]
	}

	// Номер заказа уникален; при коллизии перегенерируем и повторяем.
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		event, err := orderEvent(kafka.EventTypeOrderCreated, order)
		if err != nil {
			return domain.Order{}, err
		}

		err = s.store.PlaceOrder(ctx, order, []domain.OutboxMessage{event})
		if err == nil {
			s.recordHistory(order.ID, "", domain.OrderStatusPending, buyerID)
			if s.metrics != nil {
				s.metrics.RecordOutboxEvent()
			}
			s.logger.WithFields(log.Fields{
				"order_id":     order.ID,
				"order_number": order.Number,
				"buyer_id":     buyerID,
				"total":        order.Total.StringFixed(2),
			}).Info("order placed")
			return order, nil
		}
		if !errors.Is(err, domain.ErrOrderNumberConflict) {
			return domain.Order{}, err
		}
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"attempt":  attempt,
		}).Warn("order number collision, regenerating")
		order.Number = newOrderNumber()
	}
	return domain.Order{}, domain.ErrOrderNumberConflict
}

// snapshotItems превращает позиции корзины в замороженные позиции заказа,
// сверяя каждую с текущим каталогом.
func (s *service) snapshotItems(cart domain.Cart) ([]domain.OrderItem, error) {
	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.products.Get(line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, domain.ErrProductUnavailable
			}
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if !product.Available {
			return nil, domain.ErrProductUnavailable
		}
		if product.StockQuantity < line.Quantity {
			return nil, domain.ErrInsufficientStock
		}

		items = append(items, domain.OrderItem{
			ID:                 uuid.NewString(),
			ProductID:          product.ID,
			ProducerID:         product.ProducerID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			Quantity:           line.Quantity,
			// Цена берётся из корзины: она зафиксирована в момент добавления.
			UnitPrice: line.UnitPrice,
			CreatedAt: now,
		})
	}
	return items, nil
}

// UpdateStatus переводит заказ в следующий статус машины состояний. Актор
// обязан быть производителем хотя бы одной позиции заказа.
func (s *service) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, producerID string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.ContainsProducer(producerID) {
		return domain.Order{}, domain.ErrUnauthorized
	}

	from := order.Status
	if err := order.TransitionTo(next, time.Now().UTC()); err != nil {
		return domain.Order{}, err
	}

	event, err := orderEvent(kafka.EventTypeOrderStatusChanged, order)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.store.SaveOrder(ctx, order, []domain.OutboxMessage{event}); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.recordHistory(order.ID, from, next, producerID)
	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(next))
		s.metrics.RecordOutboxEvent()
	}
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       next,
	}).Info("order status updated")
	return order, nil
}

// Cancel отменяет заказ покупателем, атомарно возвращая остатки. Повторная
// отмена отклоняется машиной состояний без побочных эффектов.
func (s *service) Cancel(ctx context.Context, orderID, buyerID string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.BuyerID != buyerID {
		return domain.Order{}, domain.ErrUnauthorized
	}
	if !order.Cancellable() {
		return domain.Order{}, domain.ErrOrderNotCancellable
	}

	from := order.Status
	if err := order.TransitionTo(domain.OrderStatusCancelled, time.Now().UTC()); err != nil {
		return domain.Order{}, err
	}

	event, err := orderEvent(kafka.EventTypeOrderCancelled, order)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.store.CancelOrder(ctx, order, []domain.OutboxMessage{event}); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.recordHistory(order.ID, from, domain.OrderStatusCancelled, buyerID)
	if s.metrics != nil {
		s.metrics.RecordOrderCancelled()
		s.metrics.RecordOutboxEvent()
	}
	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.Number,
	}).Info("order cancelled, stock restored")
	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *service) Get(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// GetByNumber возвращает заказ по номеру.
func (s *service) GetByNumber(number string) (domain.Order, error) {
	return s.orders.GetByNumber(number)
}

// StatusHistory возвращает журнал переходов статуса заказа.
func (s *service) StatusHistory(orderID string) ([]domain.StatusEvent, error) {
	if _, err := s.orders.Get(orderID); err != nil {
		return nil, err
	}
	return s.history.List(orderID)
}

// ListByBuyer возвращает страницу заказов покупателя, новые первыми.
func (s *service) ListByBuyer(buyerID string, page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.ListByBuyer(buyerID, page)
}

// ListByProducer возвращает страницу заказов с товарами производителя.
func (s *service) ListByProducer(producerID string, page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.ListByProducer(producerID, page)
}

// ListRecent возвращает страницу последних заказов площадки.
func (s *service) ListRecent(page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.ListRecent(page)
}

// Search возвращает страницу заказов по фильтру.
func (s *service) Search(filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error) {
	return s.orders.Search(filter, page)
}

// RecordPayment проводит оплату через провайдера и фиксирует её запись.
// Отказ провайдера заказ не откатывает.
func (s *service) RecordPayment(orderID string, method domain.PaymentMethod) (domain.Payment, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if s.provider == nil || !s.provider.Supports(method) {
		return domain.Payment{}, domain.ErrPaymentMethodUnsupported
	}

	result, err := s.provider.Process(order.ID, order.Total, method)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("process payment: %w", err)
	}

	payment := domain.Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Method:    method,
		Status:    result.Status,
		Amount:    order.Total,
		Reference: result.Reference,
		CreatedAt: time.Now().UTC(),
	}
	if errs := payment.Validate(); len(errs) > 0 {
		return domain.Payment{}, errs[0]
	}
	if err := s.payments.Create(payment); err != nil {
		return domain.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	s.enqueuePaymentEvent(payment)
	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"status":     payment.Status,
	}).Info("payment recorded")
	return payment, nil
}

// enqueuePaymentEvent ставит событие платежа в outbox. Платёж best-effort,
// поэтому сбой постановки только логируется.
func (s *service) enqueuePaymentEvent(payment domain.Payment) {
	payload, err := json.Marshal(kafka.PaymentEvent{
		EventType: kafka.EventTypePaymentRecorded,
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Method:    string(payment.Method),
		Status:    string(payment.Status),
		Amount:    payment.Amount.StringFixed(2),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).Error("marshal payment event")
		return
	}

	_, err = s.outbox.Enqueue(domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: kafka.AggregateTypePayment,
		AggregateID:   payment.OrderID,
		EventType:     string(kafka.EventTypePaymentRecorded),
		Payload:       payload,
	})
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Warn("enqueue payment event")
	}
}

// recordHistory добавляет запись в журнал статусов; сбой журнала не должен
// ронять операцию, которая уже зафиксирована.
func (s *service) recordHistory(orderID string, from, to domain.OrderStatus, actor string) {
	err := s.history.Append(domain.StatusEvent{
		OrderID:  orderID,
		From:     from,
		To:       to,
		Actor:    actor,
		Occurred: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("append status history")
	}
}

// orderEvent собирает outbox-сообщение о событии заказа.
func orderEvent(eventType kafka.EventType, order domain.Order) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(kafka.OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		BuyerID:     order.BuyerID,
		Status:      string(order.Status),
		Total:       order.Total.StringFixed(2),
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}, nil
}

// newOrderNumber генерирует человекочитаемый номер заказа. Уникальность
// гарантирует хранилище; при коллизии номер перегенерируется.
func newOrderNumber() string {
	return fmt.Sprintf("CMD-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func supportedMethod(method domain.PaymentMethod) bool {
	switch method {
	case domain.PaymentMethodCard, domain.PaymentMethodMobileMoney, domain.PaymentMethodCashOnDelivery:
		return true
	}
	return false
}
