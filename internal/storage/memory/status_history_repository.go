package memory

import (
	"sort"
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// statusHistoryInMemory хранит историю статусов заказов в памяти.
type statusHistoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.StatusEvent
}

// NewStatusHistoryRepository создаёт in-memory реализацию
// StatusHistoryRepository.
func NewStatusHistoryRepository() domain.StatusHistoryRepository {
	return &statusHistoryInMemory{events: make(map[string][]domain.StatusEvent)}
}

// Append добавляет событие смены статуса.
func (r *statusHistoryInMemory) Append(event domain.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.OrderID] = append(r.events[event.OrderID], event)

	sort.Slice(r.events[event.OrderID], func(i, j int) bool {
		return r.events[event.OrderID][i].Occurred.Before(r.events[event.OrderID][j].Occurred)
	})

	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *statusHistoryInMemory) List(orderID string) ([]domain.StatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[orderID]
	result := make([]domain.StatusEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.StatusHistoryRepository = (*statusHistoryInMemory)(nil)
