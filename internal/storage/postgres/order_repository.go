package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cybernerd/agriconnect/internal/domain"
)

const orderColumns = `id, number, buyer_id, status, payment_method, promo_code,
	subtotal, shipping, discount, total,
	street, city, postal_code, country, phone, instructions,
	item_count, estimated_delivery, delivered_at, version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		return insertOrderTx(ctx, tx, order)
	})
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "id", id)
}

func (r *orderRepository) GetByNumber(number string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getByColumn(ctx, "number", number)
}

func (r *orderRepository) getByColumn(ctx context.Context, column, value string) (domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE %s = $1
	`, orderColumns, column), value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadOrderItems(ctx, r.db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(tx *sql.Tx) error {
		return saveOrderTx(ctx, tx, order)
	})
}

func (r *orderRepository) ListByBuyer(buyerID string, page domain.PageRequest) (domain.OrderPage, error) {
	return r.listWhere("buyer_id = $1", []any{buyerID}, page)
}

func (r *orderRepository) ListByProducer(producerID string, page domain.PageRequest) (domain.OrderPage, error) {
	where := `EXISTS (
		SELECT 1 FROM order_items oi
		WHERE oi.order_id = orders.id AND oi.producer_id = $1
	)`
	return r.listWhere(where, []any{producerID}, page)
}

func (r *orderRepository) ListRecent(page domain.PageRequest) (domain.OrderPage, error) {
	return r.listWhere("", nil, page)
}

func (r *orderRepository) Search(filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error) {
	var (
		conds []string
		args  []any
	)
	next := func() string { return fmt.Sprintf("$%d", len(args)) }

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, "status = "+next())
	}
	if filter.Number != "" {
		// Фильтр по номеру ищет подстроку, как и in-memory реализация.
		args = append(args, filter.Number)
		conds = append(conds, "number LIKE '%' || "+next()+" || '%'")
	}
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		conds = append(conds, "buyer_id = "+next())
	}
	if filter.ProducerID != "" {
		args = append(args, filter.ProducerID)
		conds = append(conds, `EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = orders.id AND oi.producer_id = `+next()+`
		)`)
	}

	return r.listWhere(strings.Join(conds, " AND "), args, page)
}

func (r *orderRepository) listWhere(where string, args []any, page domain.PageRequest) (domain.OrderPage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	page = page.Normalize()

	whereClause := ""
	if where != "" {
		whereClause = "WHERE " + where
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return domain.OrderPage{}, fmt.Errorf("count orders: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, listQuery, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, page.PageSize)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return domain.OrderPage{}, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return domain.OrderPage{}, fmt.Errorf("iterate order rows: %w", err)
	}

	for idx := range orders {
		items, err := loadOrderItems(ctx, r.db, orders[idx].ID)
		if err != nil {
			return domain.OrderPage{}, err
		}
		orders[idx].Items = items
	}

	return domain.NewOrderPage(orders, total, page), nil
}

func insertOrderTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, number, buyer_id, status, payment_method, promo_code,
			subtotal, shipping, discount, total,
			street, city, postal_code, country, phone, instructions,
			item_count, estimated_delivery, delivered_at, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`,
		order.ID, order.Number, order.BuyerID, string(order.Status),
		string(order.PaymentMethod), order.PromoCode,
		order.Subtotal, order.Shipping, order.Discount, order.Total,
		order.Address.Street, order.Address.City, order.Address.PostalCode,
		order.Address.Country, order.Address.Phone, order.Address.Instructions,
		order.ItemCount, order.EstimatedDelivery, order.DeliveredAt,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Транзакция уже в состоянии ошибки, дополнительные выборки
			// невозможны: конфликт различается по имени ограничения.
			if constraintName(err) == "orders_pkey" {
				return domain.ErrOrderConflict
			}
			return domain.ErrOrderNumberConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, producer_id, product_name,
				product_description, quantity, unit_price, line_total, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			item.ID, order.ID, item.ProductID, item.ProducerID, item.ProductName,
			item.ProductDescription, item.Quantity, item.UnitPrice, item.LineTotal,
			item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// saveOrderTx обновляет мутабельную часть заказа (статус, отметки доставки)
// под optimistic lock. Денежные поля и позиции заморожены при создании и
// не перезаписываются.
func saveOrderTx(ctx context.Context, tx *sql.Tx, order domain.Order) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    delivered_at = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status), order.DeliveredAt, order.UpdatedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order update: %w", err)
	}
	if affected == 0 {
		if !orderIDTaken(ctx, tx, order.ID) {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func orderIDTaken(ctx context.Context, tx *sql.Tx, orderID string) bool {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	return err == nil
}

func loadOrderItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, producer_id, product_name, product_description,
		       quantity, unit_price, line_total, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.ProducerID,
			&item.ProductName, &item.ProductDescription,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		status        string
		paymentMethod string
		deliveredAt   sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.Number, &order.BuyerID, &status, &paymentMethod,
		&order.PromoCode,
		&order.Subtotal, &order.Shipping, &order.Discount, &order.Total,
		&order.Address.Street, &order.Address.City, &order.Address.PostalCode,
		&order.Address.Country, &order.Address.Phone, &order.Address.Instructions,
		&order.ItemCount, &order.EstimatedDelivery, &deliveredAt,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	if deliveredAt.Valid {
		delivered := deliveredAt.Time
		order.DeliveredAt = &delivered
	}

	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
