package memory

import (
	"sort"
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// paymentRepositoryInMemory хранит записи о платежах по заказам.
type paymentRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.Payment
}

// NewPaymentRepository возвращает in-memory реализацию PaymentRepository.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{byOrder: make(map[string][]domain.Payment)}
}

// Create сохраняет запись о платеже.
func (r *paymentRepositoryInMemory) Create(payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byOrder[payment.OrderID] = append(r.byOrder[payment.OrderID], payment)
	return nil
}

// ListByOrder возвращает платежи заказа в порядке создания.
func (r *paymentRepositoryInMemory) ListByOrder(orderID string) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := r.byOrder[orderID]
	result := make([]domain.Payment, len(payments))
	copy(result, payments)

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
