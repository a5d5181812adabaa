// Package currency converts monetary amounts to and from the single
// accounting currency every price breakdown is expressed in.
package currency

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/utils"
)

// Normalizer is the conversion seam the pricing pipeline goes through for
// every amount, even in a single-currency deployment.
type Normalizer interface {
	AccountingCurrency() string
	ToAccountingCurrency(amount decimal.Decimal, from string) (decimal.Decimal, error)
	FromAccountingCurrency(amount decimal.Decimal, to string) (decimal.Decimal, error)
	Rate(code string) (decimal.Decimal, error)
}

// Table is a Normalizer backed by fixed rates, each expressed as units of the
// accounting currency per one unit of the foreign currency.
type Table struct {
	mu    sync.RWMutex
	base  string
	rates map[string]decimal.Decimal
}

// NewSingle returns a Table that only knows the accounting currency, which
// makes every conversion the identity.
func NewSingle(base string) *Table {
	base = normalizeCode(base)
	return &Table{
		base:  base,
		rates: map[string]decimal.Decimal{base: decimal.NewFromInt(1)},
	}
}

// SetRate registers or replaces the rate for code.
func (t *Table) SetRate(code string, toBase decimal.Decimal) error {
	code = normalizeCode(code)
	if !toBase.IsPositive() {
		return fmt.Errorf("%w: rate for %s must be positive", utils.ErrValidation, code)
	}
	if code == t.base && !toBase.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: accounting currency rate is fixed at 1", utils.ErrValidation)
	}
	t.mu.Lock()
	t.rates[code] = toBase
	t.mu.Unlock()
	return nil
}

// AccountingCurrency returns the currency breakdowns are expressed in.
func (t *Table) AccountingCurrency() string {
	return t.base
}

// Rate returns the accounting-currency value of one unit of code. An empty
// code means the accounting currency.
func (t *Table) Rate(code string) (decimal.Decimal, error) {
	code = normalizeCode(code)
	if code == "" {
		code = t.base
	}
	t.mu.RLock()
	r, ok := t.rates[code]
	t.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unsupported currency %q", utils.ErrValidation, code)
	}
	return r, nil
}

// ToAccountingCurrency converts amount from the given currency.
func (t *Table) ToAccountingCurrency(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	r, err := t.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(r), nil
}

// FromAccountingCurrency converts an accounting-currency amount into to.
func (t *Table) FromAccountingCurrency(amount decimal.Decimal, to string) (decimal.Decimal, error) {
	r, err := t.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	if r.Equal(decimal.NewFromInt(1)) {
		return amount, nil
	}
	return amount.Div(r), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
