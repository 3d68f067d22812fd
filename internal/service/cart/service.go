package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/cybernerd/agriconnect/internal/domain"
	"github.com/cybernerd/agriconnect/internal/pricing"
)

// Service описывает операции над корзиной покупателя.
type Service interface {
	// GetOrCreateCart возвращает корзину покупателя, создавая пустую при
	// первом обращении.
	GetOrCreateCart(buyerID string) (domain.Cart, error)
	// AddItem добавляет товар в корзину или сливает количество с уже
	// добавленной позицией.
	AddItem(buyerID, productID string, quantity int32) (domain.Cart, error)
	// UpdateQuantity меняет количество позиции; количество <= 0 удаляет её.
	UpdateQuantity(buyerID, itemID string, quantity int32) (domain.Cart, error)
	// RemoveItem удаляет позицию. Повторный вызов не является ошибкой.
	RemoveItem(buyerID, itemID string) (domain.Cart, error)
	// Clear опустошает корзину и снимает промокод.
	Clear(buyerID string) (domain.Cart, error)
	// ApplyPromoCode применяет промокод из фиксированной таблицы ставок.
	ApplyPromoCode(buyerID, code string) (domain.Cart, error)
	// RemovePromoCode снимает промокод.
	RemovePromoCode(buyerID string) (domain.Cart, error)
	// CheckAvailability проверяет, что каждая позиция покрыта текущим
	// остатком. Возвращает корзину с помеченными позициями, ничего не
	// сохраняя.
	CheckAvailability(buyerID string) (domain.Cart, bool, error)
}

type service struct {
	accounts domain.AccountRepository
	products domain.ProductRepository
	carts    domain.CartRepository
	logger   *log.Entry
}

// NewService создаёт рабочий экземпляр сервиса корзины.
func NewService(
	accounts domain.AccountRepository,
	products domain.ProductRepository,
	carts domain.CartRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &service{
		accounts: accounts,
		products: products,
		carts:    carts,
		logger:   logger,
	}
}

// GetOrCreateCart возвращает корзину покупателя, создавая её лениво.
func (s *service) GetOrCreateCart(buyerID string) (domain.Cart, error) {
	account, err := s.accounts.Get(buyerID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Cart{}, domain.ErrBuyerNotFound
		}
		return domain.Cart{}, fmt.Errorf("load buyer: %w", err)
	}
	if !account.IsBuyer() {
		return domain.Cart{}, domain.ErrBuyerNotFound
	}

	cart, err := s.carts.GetByBuyer(buyerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	cart = domain.NewCart(uuid.NewString(), buyerID, time.Now().UTC())
	if err := s.carts.Create(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	s.logger.WithFields(log.Fields{
		"cart_id":  cart.ID,
		"buyer_id": buyerID,
	}).Info("cart created")
	return cart, nil
}

// AddItem валидирует количество и остаток товара, затем добавляет позицию.
// Цена фиксируется в момент добавления; при слиянии объединённая позиция
// получает актуальную цену товара.
func (s *service) AddItem(buyerID, productID string, quantity int32) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	cart, err := s.GetOrCreateCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	product, err := s.products.Get(productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !product.InStock() {
		return domain.Cart{}, domain.ErrProductUnavailable
	}

	// Проверяется совокупное количество: позиция после слияния тоже должна
	// покрываться остатком.
	requested := quantity
	if existing := cart.FindItemByProduct(productID); existing != nil {
		requested += existing.Quantity
	}
	if requested > product.StockQuantity {
		return domain.Cart{}, domain.ErrInsufficientStock
	}

	cart.AddItem(domain.CartItem{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Quantity:  quantity,
		UnitPrice: product.Price,
		CreatedAt: time.Now().UTC(),
	})

	return s.save(cart)
}

// UpdateQuantity меняет количество позиции с повторной проверкой остатка.
func (s *service) UpdateQuantity(buyerID, itemID string, quantity int32) (domain.Cart, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	item := cart.FindItem(itemID)
	if item == nil {
		return domain.Cart{}, domain.ErrCartItemNotFound
	}

	if quantity <= 0 {
		cart.RemoveItem(itemID)
		return s.save(cart)
	}

	product, err := s.products.Get(item.ProductID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !product.InStock() {
		return domain.Cart{}, domain.ErrProductUnavailable
	}
	if quantity > product.StockQuantity {
		return domain.Cart{}, domain.ErrInsufficientStock
	}

	cart.SetQuantity(itemID, quantity)
	return s.save(cart)
}

// RemoveItem удаляет позицию; отсутствие позиции не считается ошибкой.
func (s *service) RemoveItem(buyerID, itemID string) (domain.Cart, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	if !cart.RemoveItem(itemID) {
		return cart, nil
	}
	return s.save(cart)
}

// Clear опустошает корзину: позиции и промокод удаляются, итоги обнуляются.
func (s *service) Clear(buyerID string) (domain.Cart, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	cart.Clear()
	return s.save(cart)
}

// ApplyPromoCode валидирует код по таблице ставок и применяет его.
func (s *service) ApplyPromoCode(buyerID, code string) (domain.Cart, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	normalized := pricing.NormalizeCode(code)
	if _, ok := pricing.Rate(normalized); !ok {
		return domain.Cart{}, domain.ErrInvalidPromoCode
	}

	cart.PromoCode = normalized
	return s.save(cart)
}

// RemovePromoCode снимает промокод с корзины.
func (s *service) RemovePromoCode(buyerID string) (domain.Cart, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}

	cart.PromoCode = ""
	return s.save(cart)
}

// CheckAvailability помечает позиции, не покрытые текущим остатком, в
// возвращаемой копии корзины. Хранилище не изменяется.
func (s *service) CheckAvailability(buyerID string) (domain.Cart, bool, error) {
	cart, err := s.ownedCart(buyerID)
	if err != nil {
		return domain.Cart{}, false, err
	}

	allAvailable := true
	for idx := range cart.Items {
		item := &cart.Items[idx]
		product, err := s.products.Get(item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				item.Unavailable = true
				allAvailable = false
				continue
			}
			return domain.Cart{}, false, err
		}
		if !product.Available || product.StockQuantity < item.Quantity {
			item.Unavailable = true
			allAvailable = false
		}
	}
	return cart, allAvailable, nil
}

// ownedCart загружает корзину и проверяет принадлежность покупателю.
func (s *service) ownedCart(buyerID string) (domain.Cart, error) {
	cart, err := s.GetOrCreateCart(buyerID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.BuyerID != buyerID {
		return domain.Cart{}, domain.ErrUnauthorized
	}
	return cart, nil
}

// save пересчитывает итоги и сохраняет корзину. Отрицательный итог логируется
// как дефект: итоги уже ограничены нулём калькулятором.
func (s *service) save(cart domain.Cart) (domain.Cart, error) {
	if err := cart.Recompute(); err != nil {
		s.logger.WithError(err).WithField("cart_id", cart.ID).Error("cart totals inconsistency")
	}
	cart.UpdatedAt = time.Now().UTC()
	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	cart.Version++
	return cart, nil
}
