package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/model"
)

var (
	// ErrNotFound возвращается, когда записи нет или она принадлежит
	// другому пользователю. Наружу эти два случая не различаются.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateCategory возвращается при попытке добавить категорию
	// с уже занятым для этого пользователя и типа именем.
	ErrDuplicateCategory = errors.New("category already exists")
)

// ValidationError — некорректные входные данные на границе хранилища.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// MaxCategoryNameLen — предел длины имени категории после обрезки пробелов.
const MaxCategoryNameLen = 50

// PeriodSummary — агрегат за период: итоги и расходы по категориям.
// Категории без расходов в периоде в карте отсутствуют.
type PeriodSummary struct {
	Income            decimal.Decimal
	Expense           decimal.Decimal
	ExpenseByCategory map[string]decimal.Decimal
}

// Repository — хранилище транзакций и пользовательских категорий.
type Repository interface {
	// AddTransaction сохраняет транзакцию и возвращает её с присвоенным
	// id и серверным created_at (UTC).
	AddTransaction(ctx context.Context, userID int64, kind model.Kind, amount decimal.Decimal, category string) (model.Transaction, error)
	// LastTransaction возвращает транзакцию пользователя с наибольшим id.
	LastTransaction(ctx context.Context, userID int64) (model.Transaction, error)
	// DeleteTransaction удаляет транзакцию, только если она принадлежит
	// пользователю.
	DeleteTransaction(ctx context.Context, id, userID int64) error
	// PeriodSummary агрегирует полуинтервал [start, end).
	PeriodSummary(ctx context.Context, userID int64, start, end time.Time) (PeriodSummary, error)
	// RecentTransactions возвращает не более limit последних записей,
	// новые первыми.
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error)

	AddUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error
	// DeleteUserCategory удаляет категорию по точному имени, без обрезки
	// пробелов. Асимметрия с AddUserCategory сохранена намеренно.
	DeleteUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error
	// UserCategories возвращает имена категорий пользователя,
	// отсортированные лексикографически.
	UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error)

	Close() error
}

// validateTransaction — общие для всех бэкендов проверки перед записью.
func validateTransaction(kind model.Kind, amount decimal.Decimal, category string) error {
	if !kind.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	if !amount.IsPositive() {
		return &ValidationError{Reason: "amount must be positive"}
	}
	// Сумма хранится в минорных единицах int64; что не влезает, то
	// портится при обратном чтении.
	if !amount.Shift(2).Round(0).BigInt().IsInt64() {
		return &ValidationError{Reason: "amount does not fit minor units"}
	}
	if category == "" {
		return &ValidationError{Reason: "category must not be empty"}
	}
	return nil
}

// normalizeCategoryName обрезает пробелы и проверяет длину имени.
func normalizeCategoryName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Reason: "category name must not be empty"}
	}
	if len([]rune(trimmed)) > MaxCategoryNameLen {
		return "", &ValidationError{Reason: fmt.Sprintf("category name longer than %d characters", MaxCategoryNameLen)}
	}
	return trimmed, nil
}
