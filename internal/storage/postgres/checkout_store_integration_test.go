package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/domain"
)

func seedIntegrationProduct(t *testing.T, store *Store, stock int32) domain.Product {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	product := domain.Product{
		ID:            uuid.NewString(),
		ProducerID:    "producer-it",
		Name:          "Tomates anciennes",
		Description:   "Tomates de plein champ",
		Unit:          "kg",
		Origin:        "Thiès",
		Price:         decimal.RequireFromString("4.50"),
		StockQuantity: stock,
		Available:     true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := NewProductRepository(store).Create(product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedIntegrationCart(t *testing.T, store *Store, buyerID string, product domain.Product, qty int32) domain.Cart {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	cart := domain.NewCart(uuid.NewString(), buyerID, now)
	cart.AddItem(domain.CartItem{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Quantity:  qty,
		UnitPrice: product.Price,
		CreatedAt: now,
	})
	if err := cart.Recompute(); err != nil {
		t.Fatalf("recompute seeded cart: %v", err)
	}
	if err := NewCartRepository(store).Create(cart); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return cart
}

func buildIntegrationOrder(t *testing.T, buyerID string, product domain.Product, qty int32) domain.Order {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := domain.Order{
		ID:            uuid.NewString(),
		Number:        fmt.Sprintf("CMD-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		BuyerID:       buyerID,
		Status:        domain.OrderStatusPending,
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Items: []domain.OrderItem{{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProducerID:  product.ProducerID,
			ProductName: product.Name,
			Quantity:    qty,
			UnitPrice:   product.Price,
			CreatedAt:   now,
		}},
		Address: domain.DeliveryAddress{
			Street: "12 rue des Manguiers", City: "Dakar", Country: "SN",
		},
		EstimatedDelivery: now.Add(72 * time.Hour),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := order.Recompute(); err != nil {
		t.Fatalf("recompute order: %v", err)
	}
	return order
}

func orderEventForIntegration(order domain.Order) domain.OutboxMessage {
	return domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "order.created",
		Payload:       []byte(fmt.Sprintf(`{"order_id":%q}`, order.ID)),
	}
}

func TestCheckoutStore_PlaceOrderPostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)
	carts := NewCartRepository(store)
	orders := NewOrderRepository(store)
	outbox := NewOutboxRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerID, product, 4)
	order := buildIntegrationOrder(t, buyerID, product, 4)

	err := checkout.PlaceOrder(context.Background(), order, []domain.OutboxMessage{orderEventForIntegration(order)})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.StockQuantity != 6 {
		t.Fatalf("expected stock 6 after checkout, got %d", stored.StockQuantity)
	}

	cart, err := carts.GetByBuyer(buyerID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("expected empty cart after checkout, got %d items", len(cart.Items))
	}

	placed, err := orders.GetByNumber(order.Number)
	if err != nil {
		t.Fatalf("load order by number: %v", err)
	}
	if placed.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", placed.Status)
	}
	if len(placed.Items) != 1 || placed.Items[0].ProductName != product.Name {
		t.Fatalf("expected snapshotted item, got %+v", placed.Items)
	}
	if !placed.Total.Equal(order.Total) {
		t.Fatalf("expected total %s, got %s", order.Total, placed.Total)
	}

	stats, err := outbox.Stats()
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending outbox event, got %d", stats.PendingCount)
	}
}

func TestCheckoutStore_PlaceOrderTwiceFromOneCart(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerID, product, 2)

	// Оба заказа собраны с одного снимка корзины.
	first := buildIntegrationOrder(t, buyerID, product, 2)
	second := buildIntegrationOrder(t, buyerID, product, 2)

	if err := checkout.PlaceOrder(context.Background(), first, nil); err != nil {
		t.Fatalf("first place order: %v", err)
	}

	err := checkout.PlaceOrder(context.Background(), second, nil)
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("second place order err = %v, want ErrEmptyCart", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if stored.StockQuantity != 8 {
		t.Errorf("stock = %d, want 8 after a single checkout", stored.StockQuantity)
	}
	if _, err := NewOrderRepository(store).Get(second.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("second order must not be persisted, got %v", err)
	}
}

func TestCheckoutStore_PlaceOrderStaleSnapshotRejected(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerID, product, 5)

	// Снимок заказа разошёлся с актуальным составом корзины.
	order := buildIntegrationOrder(t, buyerID, product, 2)

	err := checkout.PlaceOrder(context.Background(), order, nil)
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Errorf("stock = %d, want 10 untouched", stored.StockQuantity)
	}
}

func TestCheckoutStore_PlaceOrderInsufficientStockRollsBack(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)
	carts := NewCartRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 3)
	seedIntegrationCart(t, store, buyerID, product, 5)
	order := buildIntegrationOrder(t, buyerID, product, 5)

	err := checkout.PlaceOrder(context.Background(), order, nil)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.StockQuantity != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", stored.StockQuantity)
	}

	cart, err := carts.GetByBuyer(buyerID)
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected cart to keep its item, got %d items", len(cart.Items))
	}
}

func TestCheckoutStore_PlaceOrderNumberConflictRollsBack(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)

	buyerOne := uuid.NewString()
	buyerTwo := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerOne, product, 2)
	seedIntegrationCart(t, store, buyerTwo, product, 2)

	first := buildIntegrationOrder(t, buyerOne, product, 2)
	if err := checkout.PlaceOrder(context.Background(), first, nil); err != nil {
		t.Fatalf("place first order: %v", err)
	}

	second := buildIntegrationOrder(t, buyerTwo, product, 2)
	second.Number = first.Number

	err := checkout.PlaceOrder(context.Background(), second, nil)
	if !errors.Is(err, domain.ErrOrderNumberConflict) {
		t.Fatalf("expected ErrOrderNumberConflict, got %v", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.StockQuantity != 8 {
		t.Fatalf("expected stock 8 (only first checkout applied), got %d", stored.StockQuantity)
	}
}

func TestCheckoutStore_CancelOrderRestoresStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	products := NewProductRepository(store)
	orders := NewOrderRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerID, product, 4)
	order := buildIntegrationOrder(t, buyerID, product, 4)

	if err := checkout.PlaceOrder(context.Background(), order, nil); err != nil {
		t.Fatalf("place order: %v", err)
	}

	placed, err := orders.Get(order.ID)
	if err != nil {
		t.Fatalf("load placed order: %v", err)
	}
	if err := placed.TransitionTo(domain.OrderStatusCancelled, time.Now().UTC()); err != nil {
		t.Fatalf("transition to cancelled: %v", err)
	}

	if err := checkout.CancelOrder(context.Background(), placed, nil); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	stored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.StockQuantity)
	}

	cancelled, err := orders.Get(order.ID)
	if err != nil {
		t.Fatalf("reload cancelled order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", cancelled.Status)
	}
}

func TestCheckoutStore_SaveOrderEnqueuesEvents(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	checkout := NewCheckoutStore(store)
	orders := NewOrderRepository(store)
	outbox := NewOutboxRepository(store)

	buyerID := uuid.NewString()
	product := seedIntegrationProduct(t, store, 10)
	seedIntegrationCart(t, store, buyerID, product, 2)
	order := buildIntegrationOrder(t, buyerID, product, 2)

	if err := checkout.PlaceOrder(context.Background(), order, nil); err != nil {
		t.Fatalf("place order: %v", err)
	}

	placed, err := orders.Get(order.ID)
	if err != nil {
		t.Fatalf("load placed order: %v", err)
	}
	if err := placed.TransitionTo(domain.OrderStatusConfirmed, time.Now().UTC()); err != nil {
		t.Fatalf("transition to confirmed: %v", err)
	}

	event := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   placed.ID,
		EventType:     "order.status_changed",
		Payload:       []byte(`{"to":"confirmed"}`),
	}
	if err := checkout.SaveOrder(context.Background(), placed, []domain.OutboxMessage{event}); err != nil {
		t.Fatalf("save order: %v", err)
	}

	confirmed, err := orders.Get(placed.ID)
	if err != nil {
		t.Fatalf("reload confirmed order: %v", err)
	}
	if confirmed.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %s", confirmed.Status)
	}
	if confirmed.Version != placed.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", placed.Version+1, confirmed.Version)
	}

	pending, err := outbox.PullPending(0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.status_changed" {
		t.Fatalf("expected one status_changed event, got %+v", pending)
	}
}
