package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cybernerd/agriconnect/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) GetByBuyer(buyerID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, promo_code, subtotal, shipping, discount, total,
		       version, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1
	`, buyerID).Scan(
		&cart.ID, &cart.BuyerID, &cart.PromoCode,
		&cart.Subtotal, &cart.Shipping, &cart.Discount, &cart.Total,
		&cart.Version, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	items, err := r.loadItems(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) Create(cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertCartTx(ctx, tx, cart); err != nil {
			return err
		}
		return insertCartItemsTx(ctx, tx, cart)
	})
}

// Save перезаписывает корзину и её позиции под optimistic lock по version.
func (r *cartRepository) Save(cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		return saveCartTx(ctx, tx, cart)
	})
}

func (r *cartRepository) loadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	return loadCartItems(ctx, r.db, cartID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadCartItems(ctx context.Context, q querier, cartID string) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price, line_total, unavailable, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &item.Unavailable, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

func insertCartTx(ctx context.Context, tx *sql.Tx, cart domain.Cart) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO carts (
			id, buyer_id, promo_code, subtotal, shipping, discount, total,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		cart.ID, cart.BuyerID, cart.PromoCode,
		cart.Subtotal, cart.Shipping, cart.Discount, cart.Total,
		cart.Version, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func insertCartItemsTx(ctx context.Context, tx *sql.Tx, cart domain.Cart) error {
	for _, item := range cart.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (
				id, cart_id, product_id, quantity, unit_price, line_total,
				unavailable, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, cart.ID, item.ProductID, item.Quantity,
			item.UnitPrice, item.LineTotal, item.Unavailable, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	return nil
}

// saveCartTx обновляет шапку корзины с проверкой версии и перезаписывает
// позиции целиком. Используется и CheckoutStore для очистки корзины в
// транзакции оформления.
func saveCartTx(ctx context.Context, tx *sql.Tx, cart domain.Cart) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE carts
		SET promo_code = $1,
		    subtotal = $2,
		    shipping = $3,
		    discount = $4,
		    total = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $7
		  AND version = $8
	`,
		cart.PromoCode, cart.Subtotal, cart.Shipping, cart.Discount, cart.Total,
		cart.UpdatedAt, cart.ID, cart.Version,
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for cart update: %w", err)
	}
	if affected == 0 {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE id = $1`, cart.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("check cart exists: %w", err)
		}
		return domain.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return insertCartItemsTx(ctx, tx, cart)
}

var _ domain.CartRepository = (*cartRepository)(nil)
