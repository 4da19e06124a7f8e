package domain

import "github.com/shopspring/decimal"

// Money is a decimal currency amount. Prices are stored as integer cents.
type Money struct {
	d decimal.Decimal
}

func Zero() Money {
	return Money{d: decimal.Zero}
}

func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Cents() int64 {
	return m.d.Shift(2).IntPart()
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// String renders the amount with two fraction digits, e.g. "12.50".
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// ParseMoney reads a decimal amount such as "12.5" or "12.50".
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return Money{d: d}, nil
}

func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}
