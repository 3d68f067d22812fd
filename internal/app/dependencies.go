package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/cybernerd/agriconnect/internal/domain"
	cartsvc "github.com/cybernerd/agriconnect/internal/service/cart"
	ordersvc "github.com/cybernerd/agriconnect/internal/service/order"
	"github.com/cybernerd/agriconnect/internal/service/payment"
	"github.com/cybernerd/agriconnect/internal/storage/memory"
	"github.com/cybernerd/agriconnect/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Accounts domain.AccountRepository
	Products domain.ProductRepository
	Carts    domain.CartRepository
	Orders   domain.OrderRepository
	Payments domain.PaymentRepository
	History  domain.StatusHistoryRepository
	Outbox   domain.OutboxRepository
	Checkout domain.CheckoutStore

	PaymentProvider domain.PaymentService

	CartService  cartsvc.Service
	OrderService ordersvc.Service

	// Store заполняется только для postgres-драйвера; используется для
	// ping-проверки и закрытия подключения.
	Store *postgres.Store

	Logger *log.Entry
}

// NewDependencies создаёт и связывает зависимости приложения согласно
// выбранному драйверу хранилища.
// NOTE: платёжный провайдер — mock; в production он заменяется на клиент
// реального платёжного шлюза.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		PaymentProvider: payment.NewMockProvider(),
		Logger:          logger,
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}

		deps.Store = store
		deps.Accounts = postgres.NewAccountRepository(store)
		deps.Products = postgres.NewProductRepository(store)
		deps.Carts = postgres.NewCartRepository(store)
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Payments = postgres.NewPaymentRepository(store)
		deps.History = postgres.NewStatusHistoryRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Checkout = postgres.NewCheckoutStore(store)
		logger.Info("postgres storage initialized")

	case StorageMemory:
		deps.Accounts = memory.NewAccountRepository()
		deps.Products = memory.NewProductRepository()
		deps.Carts = memory.NewCartRepository()
		deps.Orders = memory.NewOrderRepository()
		deps.Payments = memory.NewPaymentRepository()
		deps.History = memory.NewStatusHistoryRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Checkout = memory.NewCheckoutStore(deps.Products, deps.Carts, deps.Orders, deps.Outbox)
		logger.Info("in-memory storage initialized")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	deps.CartService = cartsvc.NewService(
		deps.Accounts,
		deps.Products,
		deps.Carts,
		logger.WithField("component", "cart"),
	)
	deps.OrderService = ordersvc.NewService(
		deps.Accounts,
		deps.Products,
		deps.Carts,
		deps.Orders,
		deps.Payments,
		deps.History,
		deps.Outbox,
		deps.Checkout,
		deps.PaymentProvider,
		logger.WithField("component", "order"),
	)

	return deps, nil
}

// Close освобождает внешние ресурсы зависимостей.
func (d *Dependencies) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
