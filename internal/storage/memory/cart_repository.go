package memory

import (
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// cartRepositoryInMemory хранит корзины по покупателю (1:1).
type cartRepositoryInMemory struct {
	mu      sync.RWMutex
	byBuyer map[string]domain.Cart
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{byBuyer: make(map[string]domain.Cart)}
}

// GetByBuyer возвращает копию корзины покупателя или ErrCartNotFound.
func (r *cartRepositoryInMemory) GetByBuyer(buyerID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.byBuyer[buyerID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return copyCart(cart), nil
}

// Create сохраняет новую корзину, если у покупателя её ещё нет.
func (r *cartRepositoryInMemory) Create(cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byBuyer[cart.BuyerID]; exists {
		return domain.ErrVersionConflict
	}
	r.byBuyer[cart.BuyerID] = copyCart(cart)
	return nil
}

// Save перезаписывает корзину вместе с позициями, проверяя версию.
func (r *cartRepositoryInMemory) Save(cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byBuyer[cart.BuyerID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if current.Version != cart.Version {
		return domain.ErrVersionConflict
	}
	cart.Version++
	r.byBuyer[cart.BuyerID] = copyCart(cart)
	return nil
}

// copyCart делает глубокую копию, чтобы избежать мутаций извне через слайс
// позиций.
func copyCart(cart domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(cart.Items))
	copy(items, cart.Items)
	cart.Items = items
	return cart
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
