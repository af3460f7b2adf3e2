package base

import (
	"fmt"

	"krostyshop/internal/provider"

	"github.com/shopspring/decimal"
)

// AmountValidator validates payment amounts
type AmountValidator struct {
	minAmount decimal.Decimal
	maxAmount decimal.Decimal
	currency  string
}

// NewAmountValidator creates a validator; a zero max means no upper bound
func NewAmountValidator(currency string, minAmount, maxAmount decimal.Decimal) *AmountValidator {
	return &AmountValidator{
		minAmount: minAmount,
		maxAmount: maxAmount,
		currency:  currency,
	}
}

// ValidateAmount validates payment amount
func (v *AmountValidator) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: "amount must be greater than zero",
		}
	}

	if amount.LessThan(v.minAmount) {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: fmt.Sprintf("amount must be at least %s %s", v.minAmount.StringFixed(2), v.currency),
		}
	}

	if v.maxAmount.IsPositive() && amount.GreaterThan(v.maxAmount) {
		return &provider.ProviderError{
			Code:    provider.ErrInvalidAmount,
			Message: fmt.Sprintf("amount must not exceed %s %s", v.maxAmount.StringFixed(2), v.currency),
		}
	}

	return nil
}

// FormatAmount formats amount for display
func FormatAmount(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
}
