package memory

import (
	"sort"
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// productRepositoryInMemory — in-memory каталог для локальной разработки и
// тестов. Мьютекс делает декремент остатка атомарным относительно
// конкурирующих оформлений.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory реализацию ProductRepository.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{items: make(map[string]domain.Product)}
}

// Create сохраняет новый товар, если ID ещё не занят.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает товары, упорядоченные по имени, ограничивая выборку limit.
func (r *productRepositoryInMemory) List(limit int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// TryDecrementStock списывает qty единиц, только если товар доступен и
// остатка хватает. Проверка и запись выполняются под одним локом.
func (r *productRepositoryInMemory) TryDecrementStock(id string, qty int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return false, domain.ErrProductNotFound
	}
	if !product.Available || product.StockQuantity < qty {
		return false, nil
	}

	product.StockQuantity -= qty
	r.items[id] = product
	return true, nil
}

// IncrementStock возвращает qty единиц на остаток.
func (r *productRepositoryInMemory) IncrementStock(id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}

	product.StockQuantity += qty
	r.items[id] = product
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
