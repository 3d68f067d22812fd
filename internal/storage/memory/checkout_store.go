package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// checkoutStoreInMemory выполняет оформление и отмену заказа поверх
// in-memory репозиториев. Store-мьютекс сериализует оформления целиком:
// это аналог транзакции БД для локальной разработки и тестов.
type checkoutStoreInMemory struct {
	mu       sync.Mutex
	products domain.ProductRepository
	carts    domain.CartRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
}

// NewCheckoutStore собирает in-memory CheckoutStore поверх репозиториев.
func NewCheckoutStore(
	products domain.ProductRepository,
	carts domain.CartRepository,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
) domain.CheckoutStore {
	return &checkoutStoreInMemory{
		products: products,
		carts:    carts,
		orders:   orders,
		outbox:   outbox,
	}
}

// PlaceOrder атомарно списывает остатки, сохраняет заказ, опустошает корзину
// и ставит события в outbox. Любой сбой компенсирует уже сделанные списания.
func (s *checkoutStoreInMemory) PlaceOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Шаг 1: повторная сверка корзины под замком. Конкурентное оформление
	// того же покупателя уже опустошило корзину или изменило её состав.
	cart, err := s.carts.GetByBuyer(order.BuyerID)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return domain.ErrEmptyCart
	}
	if !cart.CoversOrderItems(order.Items) {
		return domain.ErrVersionConflict
	}
	original := copyCart(cart)

	// Шаг 2: условное списание остатков, всё или ничего.
	decremented := make([]domain.OrderItem, 0, len(order.Items))
	rollbackStock := func() {
		for _, item := range decremented {
			_ = s.products.IncrementStock(item.ProductID, item.Quantity)
		}
	}

	for _, item := range order.Items {
		ok, err := s.products.TryDecrementStock(item.ProductID, item.Quantity)
		if err != nil {
			rollbackStock()
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		if !ok {
			rollbackStock()
			return domain.ErrInsufficientStock
		}
		decremented = append(decremented, item)
	}

	// Шаг 3: опустошаем корзину покупателя.
	cart.Clear()
	if err := cart.Recompute(); err != nil {
		rollbackStock()
		return fmt.Errorf("recompute cleared cart: %w", err)
	}
	if err := s.carts.Save(cart); err != nil {
		rollbackStock()
		return fmt.Errorf("save cleared cart: %w", err)
	}

	// Шаг 4: сохраняем заказ; при конфликте восстанавливаем корзину.
	if err := s.orders.Create(order); err != nil {
		s.restoreCart(original)
		rollbackStock()
		return err
	}

	s.enqueueAll(events)
	return nil
}

// CancelOrder атомарно возвращает остатки и сохраняет отменённый заказ.
func (s *checkoutStoreInMemory) CancelOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if err := s.products.IncrementStock(item.ProductID, item.Quantity); err != nil {
			// Возврат несуществующего товара невозможен штатно: компенсируем
			// уже возвращённое и отдаём ошибку как InternalConsistency.
			for _, done := range restored {
				_, _ = s.products.TryDecrementStock(done.ProductID, done.Quantity)
			}
			return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
		}
		restored = append(restored, item)
	}

	if err := s.orders.Save(order); err != nil {
		for _, done := range restored {
			_, _ = s.products.TryDecrementStock(done.ProductID, done.Quantity)
		}
		return err
	}

	s.enqueueAll(events)
	return nil
}

// SaveOrder сохраняет заказ и ставит события в outbox под общим замком.
// Остатки не трогаются.
func (s *checkoutStoreInMemory) SaveOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.orders.Save(order); err != nil {
		return err
	}
	s.enqueueAll(events)
	return nil
}

// restoreCart возвращает позиции и промокод в корзину после неудачной вставки
// заказа.
func (s *checkoutStoreInMemory) restoreCart(original domain.Cart) {
	current, err := s.carts.GetByBuyer(original.BuyerID)
	if err != nil {
		return
	}
	current.Items = original.Items
	current.PromoCode = original.PromoCode
	_ = current.Recompute()
	_ = s.carts.Save(current)
}

func (s *checkoutStoreInMemory) enqueueAll(events []domain.OutboxMessage) {
	for _, event := range events {
		_, _ = s.outbox.Enqueue(event)
	}
}

var _ domain.CheckoutStore = (*checkoutStoreInMemory)(nil)
