package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind классифицирует транзакцию: расход или доход.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// ParseKind проверяет строковое значение типа транзакции.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindExpense, KindIncome:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

type Transaction struct {
	ID        int64           `json:"id,omitempty"`
	UserID    int64           `json:"user_id"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// AmountCents переводит сумму в минорные единицы для хранения.
func (t Transaction) AmountCents() int64 {
	return t.Amount.Shift(2).Round(0).IntPart()
}

// AmountFromCents восстанавливает сумму из минорных единиц.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
