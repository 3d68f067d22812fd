package domain

import "time"

// Role задаёт роль аккаунта на площадке.
type Role string

const (
	// RoleBuyer — покупатель, владеет корзиной и заказами.
	RoleBuyer Role = "buyer"
	// RoleProducer — производитель, владеет товарами и исполняет заказы.
	RoleProducer Role = "producer"
	// RoleAdmin — административный аккаунт.
	RoleAdmin Role = "admin"
)

// ProducerProfile — дополнительные атрибуты аккаунта-производителя.
type ProducerProfile struct {
	FarmName string
	Region   string
	Verified bool
}

// Account — единая запись аккаунта с ролевым тегом вместо иерархии типов.
// Инвариант: один аккаунт — один email.
type Account struct {
	ID    string
	Email string
	Name  string
	Role  Role
	// Producer заполняется только для RoleProducer.
	Producer  *ProducerProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBuyer сообщает, может ли аккаунт владеть корзиной и оформлять заказы.
func (a *Account) IsBuyer() bool {
	return a.Role == RoleBuyer
}

// IsProducer сообщает, является ли аккаунт производителем.
func (a *Account) IsProducer() bool {
	return a.Role == RoleProducer
}
