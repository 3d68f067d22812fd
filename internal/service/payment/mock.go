package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// MockProvider — конфигурируемая заглушка PaymentService для разработки и
// тестов. Реальные провайдеры (карта, мобильные деньги) подключаются вместо
// неё в production.
type MockProvider struct {
	Methods      []domain.PaymentMethod
	ProcessState domain.PaymentStatus
	ProcessErr   error

	ProcessCalls int
}

// NewMockProvider возвращает mock с успешным сценарием по умолчанию,
// поддерживающий все методы оплаты.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Methods: []domain.PaymentMethod{
			domain.PaymentMethodCard,
			domain.PaymentMethodMobileMoney,
			domain.PaymentMethodCashOnDelivery,
		},
		ProcessState: domain.PaymentStatusAccepted,
	}
}

// Process возвращает заранее настроенный результат и считает вызовы.
func (m *MockProvider) Process(orderID string, amount decimal.Decimal, method domain.PaymentMethod) (domain.PaymentResult, error) {
	m.ProcessCalls++
	if m.ProcessErr != nil {
		return domain.PaymentResult{}, m.ProcessErr
	}
	return domain.PaymentResult{
		Status:    m.ProcessState,
		Reference: fmt.Sprintf("mock-%s-%d", orderID, m.ProcessCalls),
	}, nil
}

// Supports проверяет метод по настроенному списку.
func (m *MockProvider) Supports(method domain.PaymentMethod) bool {
	for _, supported := range m.Methods {
		if supported == method {
			return true
		}
	}
	return false
}

var _ domain.PaymentService = (*MockProvider)(nil)
