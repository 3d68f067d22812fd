package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/domain"
	"github.com/cybernerd/agriconnect/internal/messaging/kafka"
	"github.com/cybernerd/agriconnect/internal/service/cart"
	"github.com/cybernerd/agriconnect/internal/service/payment"
	"github.com/cybernerd/agriconnect/internal/storage/memory"
)

type fixture struct {
	accounts domain.AccountRepository
	products domain.ProductRepository
	carts    domain.CartRepository
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	history  domain.StatusHistoryRepository
	outbox   domain.OutboxRepository
	provider *payment.MockProvider

	cartService cart.Service
	service     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		accounts: memory.NewAccountRepository(),
		products: memory.NewProductRepository(),
		carts:    memory.NewCartRepository(),
		orders:   memory.NewOrderRepository(),
		payments: memory.NewPaymentRepository(),
		history:  memory.NewStatusHistoryRepository(),
		outbox:   memory.NewOutboxRepository(),
		provider: payment.NewMockProvider(),
	}
	store := memory.NewCheckoutStore(f.products, f.carts, f.orders, f.outbox)
	f.cartService = cart.NewService(f.accounts, f.products, f.carts, nil)
	f.service = NewServiceWithoutMetrics(
		f.accounts, f.products, f.carts, f.orders,
		f.payments, f.history, f.outbox, store, f.provider, nil,
	)
	return f
}

func (f *fixture) seedBuyer(t *testing.T, id string) {
	t.Helper()
	if err := f.accounts.Create(domain.Account{ID: id, Role: domain.RoleBuyer}); err != nil {
		t.Fatalf("seed buyer %s: %v", id, err)
	}
}

func (f *fixture) seedProduct(t *testing.T, id, producerID, price string, stock int32) {
	t.Helper()
	if err := f.products.Create(domain.Product{
		ID:            id,
		ProducerID:    producerID,
		Name:          "Mangues Kent",
		Description:   "Mangues de saison",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Available:     true,
	}); err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func (f *fixture) fillCart(t *testing.T, buyerID, productID string, qty int32) {
	t.Helper()
	if _, err := f.cartService.AddItem(buyerID, productID, qty); err != nil {
		t.Fatalf("fill cart: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, productID string) int32 {
	t.Helper()
	product, err := f.products.Get(productID)
	if err != nil {
		t.Fatalf("get product %s: %v", productID, err)
	}
	return product.StockQuantity
}

func checkoutRequest() CheckoutRequest {
	return CheckoutRequest{
		PaymentMethod: domain.PaymentMethodMobileMoney,
		Address: domain.DeliveryAddress{
			Street:     "12 rue des Manguiers",
			City:       "Dakar",
			PostalCode: "10200",
			Country:    "SN",
			Phone:      "+221770000000",
		},
	}
}

func TestCheckoutPlacesOrder(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 5)

	before := time.Now().UTC()
	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.Number == "" {
		t.Error("order number should be generated")
	}
	if got := order.Total.StringFixed(2); got != "27.50" {
		t.Errorf("total = %s, want 27.50", got)
	}
	if order.ItemCount != 1 {
		t.Errorf("item count = %d, want 1", order.ItemCount)
	}
	if order.Address.City != "Dakar" {
		t.Errorf("address city = %q, want copied from request", order.Address.City)
	}
	if order.EstimatedDelivery.Before(before.Add(71 * time.Hour)) {
		t.Error("estimated delivery should be about three days out")
	}

	// Снапшот каталога заморожен на позиции.
	item := order.Items[0]
	if item.ProductName != "Mangues Kent" || item.ProductDescription == "" {
		t.Error("order item should snapshot product name and description")
	}
	if item.ProducerID != "producer-1" {
		t.Errorf("producer id = %q, want producer-1", item.ProducerID)
	}

	// Остаток списан, корзина опустошена.
	if got := f.stock(t, "prod-1"); got != 5 {
		t.Errorf("stock = %d, want 5 after checkout", got)
	}
	reloaded, err := f.carts.GetByBuyer("buyer-1")
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if !reloaded.IsEmpty() {
		t.Error("cart should be emptied by checkout")
	}

	// Заказ находится по номеру, событие поставлено в outbox.
	byNumber, err := f.service.GetByNumber(order.Number)
	if err != nil || byNumber.ID != order.ID {
		t.Errorf("GetByNumber = (%v, %v), want the placed order", byNumber.ID, err)
	}
	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("PullPending: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != string(kafka.EventTypeOrderCreated) {
		t.Errorf("outbox = %+v, want one order.created event", pending)
	}

	history, err := f.service.StatusHistory(order.ID)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(history) != 1 || history[0].To != domain.OrderStatusPending {
		t.Errorf("history = %+v, want one pending entry", history)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")

	_, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutUnknownBuyer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Checkout(context.Background(), "ghost", checkoutRequest())
	if !errors.Is(err, domain.ErrBuyerNotFound) {
		t.Fatalf("err = %v, want ErrBuyerNotFound", err)
	}
}

func TestCheckoutUnsupportedPaymentMethod(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")

	req := checkoutRequest()
	req.PaymentMethod = "barter"
	_, err := f.service.Checkout(context.Background(), "buyer-1", req)
	if !errors.Is(err, domain.ErrPaymentMethodUnsupported) {
		t.Fatalf("err = %v, want ErrPaymentMethodUnsupported", err)
	}
}

func TestCheckoutRevalidatesStock(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 5)

	// Остаток усох после наполнения корзины.
	if ok, err := f.products.TryDecrementStock("prod-1", 7); err != nil || !ok {
		t.Fatalf("TryDecrementStock: ok=%v err=%v", ok, err)
	}

	_, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// Корзина не тронута, остаток не списан.
	reloaded, err := f.carts.GetByBuyer("buyer-1")
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if reloaded.IsEmpty() {
		t.Error("failed checkout must leave the cart intact")
	}
	if got := f.stock(t, "prod-1"); got != 3 {
		t.Errorf("stock = %d, want 3 untouched by failed checkout", got)
	}
}

func TestCheckoutNoPartialDecrement(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.seedProduct(t, "prod-2", "producer-2", "2.00", 10)
	f.fillCart(t, "buyer-1", "prod-1", 2)
	f.fillCart(t, "buyer-1", "prod-2", 4)

	// Второй товар перестаёт покрывать корзину.
	if ok, err := f.products.TryDecrementStock("prod-2", 8); err != nil || !ok {
		t.Fatalf("TryDecrementStock: ok=%v err=%v", ok, err)
	}

	_, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	if got := f.stock(t, "prod-1"); got != 10 {
		t.Errorf("prod-1 stock = %d, want 10: no partial decrement", got)
	}
	if got := f.stock(t, "prod-2"); got != 2 {
		t.Errorf("prod-2 stock = %d, want 2 untouched", got)
	}
}

func TestCancelRestoresStockAndFreezesTotal(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 5)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if got := f.stock(t, "prod-1"); got != 5 {
		t.Fatalf("stock = %d, want 5 after checkout", got)
	}

	cancelled, err := f.service.Cancel(context.Background(), order.ID, "buyer-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if got := f.stock(t, "prod-1"); got != 10 {
		t.Errorf("stock = %d, want 10 restored to pre-checkout value", got)
	}
	if !cancelled.Total.Equal(order.Total) {
		t.Errorf("total = %s, want frozen %s", cancelled.Total, order.Total)
	}

	// Повторная отмена отклоняется без побочных эффектов.
	_, err = f.service.Cancel(context.Background(), order.ID, "buyer-1")
	if !errors.Is(err, domain.ErrOrderNotCancellable) {
		t.Fatalf("second cancel err = %v, want ErrOrderNotCancellable", err)
	}
	if got := f.stock(t, "prod-1"); got != 10 {
		t.Errorf("stock = %d, want 10: repeated cancel must not restock again", got)
	}
}

func TestCancelByForeignBuyer(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedBuyer(t, "buyer-2")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	_, err = f.service.Cancel(context.Background(), order.ID, "buyer-2")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestCancelBlockedOnceShipped(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	ctx := context.Background()
	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusShipped,
	} {
		if _, err := f.service.UpdateStatus(ctx, order.ID, next, "producer-1"); err != nil {
			t.Fatalf("UpdateStatus to %s: %v", next, err)
		}
	}

	_, err = f.service.Cancel(ctx, order.ID, "buyer-1")
	if !errors.Is(err, domain.ErrOrderNotCancellable) {
		t.Fatalf("err = %v, want ErrOrderNotCancellable after shipping", err)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	ctx := context.Background()
	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		order, err = f.service.UpdateStatus(ctx, order.ID, next, "producer-1")
		if err != nil {
			t.Fatalf("UpdateStatus to %s: %v", next, err)
		}
		if order.Status != next {
			t.Fatalf("status = %s, want %s", order.Status, next)
		}
	}

	if order.DeliveredAt == nil {
		t.Error("delivered transition should stamp DeliveredAt")
	}

	history, err := f.service.StatusHistory(order.ID)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(history) != 5 {
		t.Errorf("history entries = %d, want 5 (creation + 4 transitions)", len(history))
	}
}

func TestUpdateStatusSkipIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	_, err = f.service.UpdateStatus(context.Background(), order.ID, domain.OrderStatusShipped, "producer-1")
	if !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition for pending -> shipped", err)
	}
}

func TestUpdateStatusByForeignProducer(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	_, err = f.service.UpdateStatus(context.Background(), order.ID, domain.OrderStatusConfirmed, "producer-2")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for producer without items in the order", err)
	}
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedBuyer(t, "buyer-2")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 1)
	f.fillCart(t, "buyer-1", "prod-1", 1)
	f.fillCart(t, "buyer-2", "prod-1", 1)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for idx, buyerID := range []string{"buyer-1", "buyer-2"} {
		wg.Add(1)
		go func(idx int, buyerID string) {
			defer wg.Done()
			_, err := f.service.Checkout(context.Background(), buyerID, checkoutRequest())
			results[idx] = err
		}(idx, buyerID)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			conflicted++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("succeeded=%d conflicted=%d, want exactly one of each", succeeded, conflicted)
	}
	if got := f.stock(t, "prod-1"); got != 0 {
		t.Errorf("stock = %d, want 0 and never negative", got)
	}
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 5)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	recorded, err := f.service.RecordPayment(order.ID, domain.PaymentMethodCard)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if recorded.Status != domain.PaymentStatusAccepted {
		t.Errorf("status = %s, want accepted from the mock provider", recorded.Status)
	}
	if !recorded.Amount.Equal(order.Total) {
		t.Errorf("amount = %s, want order total %s", recorded.Amount, order.Total)
	}

	payments, err := f.payments.ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("ListByOrder: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
}

func TestRecordPaymentDeclinedKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 5)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	f.provider.ProcessState = domain.PaymentStatusDeclined
	recorded, err := f.service.RecordPayment(order.ID, domain.PaymentMethodCard)
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if recorded.Status != domain.PaymentStatusDeclined {
		t.Errorf("status = %s, want declined", recorded.Status)
	}

	// Отказ платежа не трогает заказ и остатки.
	reloaded, err := f.service.Get(order.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Status != domain.OrderStatusPending {
		t.Errorf("order status = %s, want pending untouched by declined payment", reloaded.Status)
	}
	if got := f.stock(t, "prod-1"); got != 5 {
		t.Errorf("stock = %d, want 5 untouched by declined payment", got)
	}
}

func TestRecordPaymentUnsupportedMethod(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 10)
	f.fillCart(t, "buyer-1", "prod-1", 1)

	order, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	f.provider.Methods = []domain.PaymentMethod{domain.PaymentMethodCard}
	_, err = f.service.RecordPayment(order.ID, domain.PaymentMethodMobileMoney)
	if !errors.Is(err, domain.ErrPaymentMethodUnsupported) {
		t.Fatalf("err = %v, want ErrPaymentMethodUnsupported", err)
	}
}

func TestListByBuyerPagination(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 100)

	for i := 0; i < 5; i++ {
		f.fillCart(t, "buyer-1", "prod-1", 1)
		if _, err := f.service.Checkout(context.Background(), "buyer-1", checkoutRequest()); err != nil {
			t.Fatalf("Checkout %d: %v", i, err)
		}
	}

	page, err := f.service.ListByBuyer("buyer-1", domain.PageRequest{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListByBuyer: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 || page.TotalPages != 3 {
		t.Errorf("page = total %d items %d pages %d, want 5/2/3", page.Total, len(page.Items), page.TotalPages)
	}

	last, err := f.service.ListByBuyer("buyer-1", domain.PageRequest{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("ListByBuyer last page: %v", err)
	}
	if len(last.Items) != 1 {
		t.Errorf("last page items = %d, want 1", len(last.Items))
	}
}

func TestSearchByStatusAndProducer(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 100)
	f.seedProduct(t, "prod-2", "producer-2", "2.00", 100)

	ctx := context.Background()
	f.fillCart(t, "buyer-1", "prod-1", 1)
	first, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	f.fillCart(t, "buyer-1", "prod-2", 1)
	if _, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest()); err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, first.ID, domain.OrderStatusConfirmed, "producer-1"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	confirmed, err := f.service.Search(domain.OrderFilter{Status: domain.OrderStatusConfirmed}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("Search by status: %v", err)
	}
	if confirmed.Total != 1 || confirmed.Items[0].ID != first.ID {
		t.Errorf("search by status returned %d orders, want only the confirmed one", confirmed.Total)
	}

	byProducer, err := f.service.Search(domain.OrderFilter{ProducerID: "producer-2"}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("Search by producer: %v", err)
	}
	if byProducer.Total != 1 {
		t.Errorf("search by producer total = %d, want 1", byProducer.Total)
	}
}

func TestAnalyticsForProducer(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 100)
	f.seedProduct(t, "prod-2", "producer-2", "2.00", 100)

	ctx := context.Background()
	f.fillCart(t, "buyer-1", "prod-1", 5)
	f.fillCart(t, "buyer-1", "prod-2", 3)
	if _, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest()); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	f.fillCart(t, "buyer-1", "prod-1", 2)
	second, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if _, err := f.service.Cancel(ctx, second.ID, "buyer-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	analytics, err := f.service.AnalyticsForProducer("producer-1", PeriodMonth)
	if err != nil {
		t.Fatalf("AnalyticsForProducer: %v", err)
	}

	if analytics.OrderCount != 2 {
		t.Errorf("order count = %d, want 2", analytics.OrderCount)
	}
	// Выручка только по позициям producer-1 неотменённых заказов: 5 x 4.50.
	if got := analytics.Revenue.StringFixed(2); got != "22.50" {
		t.Errorf("revenue = %s, want 22.50", got)
	}
	if analytics.StatusBreakdown[domain.OrderStatusCancelled] != 1 {
		t.Errorf("cancelled breakdown = %d, want 1", analytics.StatusBreakdown[domain.OrderStatusCancelled])
	}
	if len(analytics.TopProducts) != 1 || analytics.TopProducts[0].ProductID != "prod-1" {
		t.Errorf("top products = %+v, want only prod-1", analytics.TopProducts)
	}
	if analytics.TopProducts[0].Quantity != 5 {
		t.Errorf("top product quantity = %d, want 5", analytics.TopProducts[0].Quantity)
	}
	if len(analytics.DailyRevenue) != 1 {
		t.Errorf("daily revenue entries = %d, want 1", len(analytics.DailyRevenue))
	}
}

func TestAnalyticsUnknownPeriod(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AnalyticsForProducer("producer-1", "2h"); err == nil {
		t.Fatal("unknown period should be rejected")
	}
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	f.seedBuyer(t, "buyer-1")
	f.seedProduct(t, "prod-1", "producer-1", "4.50", 100)

	ctx := context.Background()
	f.fillCart(t, "buyer-1", "prod-1", 5)
	first, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest())
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	f.fillCart(t, "buyer-1", "prod-1", 1)
	if _, err := f.service.Checkout(ctx, "buyer-1", checkoutRequest()); err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if _, err := f.service.UpdateStatus(ctx, first.ID, domain.OrderStatusConfirmed, "producer-1"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	stats, err := f.service.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}

	if stats.TotalOrders != 2 {
		t.Errorf("total orders = %d, want 2", stats.TotalOrders)
	}
	if stats.PendingCount != 1 {
		t.Errorf("pending count = %d, want 1", stats.PendingCount)
	}
	// 27.50 + 9.50 (4.50 + доставка 5.00).
	if got := stats.TotalRevenue.StringFixed(2); got != "37.00" {
		t.Errorf("total revenue = %s, want 37.00", got)
	}
	if stats.StatusBreakdown[domain.OrderStatusConfirmed] != 1 {
		t.Errorf("confirmed breakdown = %d, want 1", stats.StatusBreakdown[domain.OrderStatusConfirmed])
	}
}
