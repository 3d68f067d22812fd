package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// checkoutStore выполняет оформление, отмену и смену статуса заказа в одной
// транзакции PostgreSQL: списание остатков, корзина, заказ и события outbox
// фиксируются или откатываются вместе.
type checkoutStore struct {
	db *sql.DB
}

// NewCheckoutStore создаёт PostgreSQL-реализацию CheckoutStore.
func NewCheckoutStore(store *Store) domain.CheckoutStore {
	return &checkoutStore{db: store.DB()}
}

// PlaceOrder оформляет заказ одной транзакцией с повтором при
// сериализационных сбоях. Корзина покупателя блокируется первой и повторно
// сверяется с позициями заказа, поэтому из одной корзины получается не более
// одного заказа; гонка за последние единицы товара разрешается условным
// UPDATE остатка.
func (s *checkoutStore) PlaceOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	txCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withRetry(txCtx, s.db, func(tx *sql.Tx) error {
		cart, err := lockCartTx(txCtx, tx, order.BuyerID)
		if err != nil {
			return err
		}

		// Сверка под замком: конкурентное оформление того же покупателя
		// уже опустошило корзину или изменило её состав.
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}
		if !cart.CoversOrderItems(order.Items) {
			return domain.ErrVersionConflict
		}

		for _, item := range order.Items {
			if err := decrementStockTx(txCtx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		cart.Clear()
		if err := cart.Recompute(); err != nil {
			return fmt.Errorf("recompute cleared cart: %w", err)
		}
		cart.UpdatedAt = time.Now().UTC()
		if err := saveCartTx(txCtx, tx, cart); err != nil {
			return fmt.Errorf("save cleared cart: %w", err)
		}

		if err := insertOrderTx(txCtx, tx, order); err != nil {
			return err
		}

		return enqueueAllTx(txCtx, tx, events)
	})
}

// CancelOrder возвращает остатки по позициям и сохраняет отменённый заказ в
// одной транзакции.
func (s *checkoutStore) CancelOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	txCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withRetry(txCtx, s.db, func(tx *sql.Tx) error {
		for _, item := range order.Items {
			if err := incrementStockTx(txCtx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := saveOrderTx(txCtx, tx, order); err != nil {
			return err
		}

		return enqueueAllTx(txCtx, tx, events)
	})
}

// SaveOrder сохраняет заказ и ставит события в outbox одной транзакцией.
// Остатки не трогаются.
func (s *checkoutStore) SaveOrder(ctx context.Context, order domain.Order, events []domain.OutboxMessage) error {
	txCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return withRetry(txCtx, s.db, func(tx *sql.Tx) error {
		if err := saveOrderTx(txCtx, tx, order); err != nil {
			return err
		}
		return enqueueAllTx(txCtx, tx, events)
	})
}

func lockCartTx(ctx context.Context, tx *sql.Tx, buyerID string) (domain.Cart, error) {
	var cart domain.Cart
	err := tx.QueryRowContext(ctx, `
		SELECT id, buyer_id, promo_code, subtotal, shipping, discount, total,
		       version, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1
		FOR UPDATE
	`, buyerID).Scan(
		&cart.ID, &cart.BuyerID, &cart.PromoCode,
		&cart.Subtotal, &cart.Shipping, &cart.Discount, &cart.Total,
		&cart.Version, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("lock cart: %w", err)
	}

	items, err := loadCartItems(ctx, tx, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

// decrementStockTx списывает остаток условным UPDATE. Нулевое число
// затронутых строк означает нехватку остатка либо отсутствие товара.
func decrementStockTx(ctx context.Context, tx *sql.Tx, productID string, qty int32) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1,
		    updated_at = $2
		WHERE id = $3
		  AND available
		  AND stock_quantity >= $1
	`, qty, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("decrement stock for %s: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for stock decrement: %w", err)
	}
	if affected == 0 {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, productID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("check product exists: %w", err)
		}
		return domain.ErrInsufficientStock
	}

	return nil
}

func incrementStockTx(ctx context.Context, tx *sql.Tx, productID string, qty int32) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1,
		    updated_at = $2
		WHERE id = $3
	`, qty, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("restore stock for %s: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for stock restore: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("restore stock for %s: %w", productID, domain.ErrProductNotFound)
	}

	return nil
}

func enqueueAllTx(ctx context.Context, tx *sql.Tx, events []domain.OutboxMessage) error {
	for _, event := range events {
		if _, err := enqueueOutboxTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.CheckoutStore = (*checkoutStore)(nil)
