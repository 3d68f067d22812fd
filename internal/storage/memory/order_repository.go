package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	byNumber map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки
// и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		byNumber: make(map[string]string),
	}
}

// Create сохраняет новый заказ, если ID и номер ещё не заняты.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(order)
}

// createLocked выполняет вставку; вызывающий обязан держать r.mu.
func (r *orderRepositoryInMemory) createLocked(order domain.Order) error {
	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderConflict
	}
	if _, exists := r.byNumber[order.Number]; exists {
		return domain.ErrOrderNumberConflict
	}
	r.items[order.ID] = copyOrder(order)
	r.byNumber[order.Number] = order.ID
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// GetByNumber возвращает заказ по человекочитаемому номеру.
func (r *orderRepositoryInMemory) GetByNumber(number string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(r.items[id]), nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveLocked(order)
}

// saveLocked выполняет обновление; вызывающий обязан держать r.mu.
func (r *orderRepositoryInMemory) saveLocked(order domain.Order) error {
	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}
	order.Version++
	r.items[order.ID] = copyOrder(order)
	return nil
}

// ListByBuyer возвращает страницу заказов покупателя, новые первыми.
func (r *orderRepositoryInMemory) ListByBuyer(buyerID string, page domain.PageRequest) (domain.OrderPage, error) {
	return r.paginate(func(order domain.Order) bool {
		return order.BuyerID == buyerID
	}, page)
}

// ListByProducer возвращает страницу заказов с товарами производителя.
func (r *orderRepositoryInMemory) ListByProducer(producerID string, page domain.PageRequest) (domain.OrderPage, error) {
	return r.paginate(func(order domain.Order) bool {
		return order.ContainsProducer(producerID)
	}, page)
}

// ListRecent возвращает страницу последних заказов площадки.
func (r *orderRepositoryInMemory) ListRecent(page domain.PageRequest) (domain.OrderPage, error) {
	return r.paginate(func(domain.Order) bool { return true }, page)
}

// Search возвращает страницу заказов по фильтру.
func (r *orderRepositoryInMemory) Search(filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error) {
	return r.paginate(func(order domain.Order) bool {
		if filter.Status != "" && order.Status != filter.Status {
			return false
		}
		if filter.Number != "" && !strings.Contains(order.Number, filter.Number) {
			return false
		}
		if filter.BuyerID != "" && order.BuyerID != filter.BuyerID {
			return false
		}
		if filter.ProducerID != "" && !order.ContainsProducer(filter.ProducerID) {
			return false
		}
		return true
	}, page)
}

func (r *orderRepositoryInMemory) paginate(match func(domain.Order) bool, page domain.PageRequest) (domain.OrderPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page = page.Normalize()

	matched := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if match(order) {
			matched = append(matched, order)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	items := make([]domain.Order, 0, end-start)
	for _, order := range matched[start:end] {
		items = append(items, copyOrder(order))
	}

	return domain.NewOrderPage(items, total, page), nil
}

// copyOrder делает копию заказа с собственным слайсом позиций.
func copyOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	if order.DeliveredAt != nil {
		delivered := *order.DeliveredAt
		order.DeliveredAt = &delivered
	}
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
