package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout — формат дат в отчетном сценарии, день.месяц.год.
const DateLayout = "02.01.2006"

// parseAmount принимает и точку, и запятую как десятичный разделитель.
func parseAmount(text string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount %s is not positive", amount)
	}
	// Хранилище держит суммы в минорных единицах int64.
	if !amount.Shift(2).Round(0).BigInt().IsInt64() {
		return decimal.Decimal{}, fmt.Errorf("amount %s is too large", amount)
	}
	return amount, nil
}

// parseDate валидирует дату и нормализует её к полуночи UTC.
func parseDate(text string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
