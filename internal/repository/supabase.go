package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/supabase-community/supabase-go"

	"kopilka/internal/model"
)

// SupabaseRepository — альтернативный бэкенд поверх postgrest. Схема та же,
// что и в SQLite: bigserial id, amount_cents, уникальность категории на
// уровне таблицы.
type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{client: client}, nil
}

func (r *SupabaseRepository) Close() error { return nil }

type transactionRow struct {
	ID          int64     `json:"id,omitempty"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func (row transactionRow) toModel() model.Transaction {
	return model.Transaction{
		ID:        row.ID,
		UserID:    row.UserID,
		Kind:      model.Kind(row.Kind),
		Amount:    model.AmountFromCents(row.AmountCents),
		Category:  row.Category,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (r *SupabaseRepository) AddTransaction(ctx context.Context, userID int64, kind model.Kind, amount decimal.Decimal, category string) (model.Transaction, error) {
	if err := validateTransaction(kind, amount, category); err != nil {
		return model.Transaction{}, err
	}

	row := transactionRow{
		UserID:      userID,
		Kind:        string(kind),
		AmountCents: amount.Shift(2).Round(0).IntPart(),
		Category:    category,
		CreatedAt:   time.Now().UTC(),
	}

	data, _, err := r.client.From("transactions").Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	var created []transactionRow
	if err := json.Unmarshal(data, &created); err != nil {
		return model.Transaction{}, fmt.Errorf("parse created transaction: %w", err)
	}
	if len(created) == 0 {
		return model.Transaction{}, fmt.Errorf("insert transaction: empty response")
	}
	return created[0].toModel(), nil
}

func (r *SupabaseRepository) LastTransaction(ctx context.Context, userID int64) (model.Transaction, error) {
	data, _, err := r.client.From("transactions").
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Order("id.desc", nil).
		Limit(1, "").
		Execute()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("select last transaction: %w", err)
	}

	var rows []transactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return model.Transaction{}, fmt.Errorf("parse transactions: %w", err)
	}
	if len(rows) == 0 {
		return model.Transaction{}, ErrNotFound
	}
	return rows[0].toModel(), nil
}

func (r *SupabaseRepository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	data, _, err := r.client.From("transactions").
		Delete("representation", "").
		Eq("id", strconv.FormatInt(id, 10)).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	var deleted []transactionRow
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("parse deleted transactions: %w", err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

// PeriodSummary выбирает окно целиком и сворачивает на клиенте: postgrest не
// даёт GROUP BY через этот клиент.
func (r *SupabaseRepository) PeriodSummary(ctx context.Context, userID int64, start, end time.Time) (PeriodSummary, error) {
	summary := PeriodSummary{ExpenseByCategory: make(map[string]decimal.Decimal)}

	data, _, err := r.client.From("transactions").
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Gte("created_at", start.UTC().Format(time.RFC3339)).
		Lt("created_at", end.UTC().Format(time.RFC3339)).
		Execute()
	if err != nil {
		return summary, fmt.Errorf("select period transactions: %w", err)
	}

	var rows []transactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return summary, fmt.Errorf("parse transactions: %w", err)
	}

	for _, row := range rows {
		amount := model.AmountFromCents(row.AmountCents)
		switch model.Kind(row.Kind) {
		case model.KindIncome:
			summary.Income = summary.Income.Add(amount)
		case model.KindExpense:
			summary.Expense = summary.Expense.Add(amount)
			summary.ExpenseByCategory[row.Category] = summary.ExpenseByCategory[row.Category].Add(amount)
		}
	}
	return summary, nil
}

func (r *SupabaseRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	data, _, err := r.client.From("transactions").
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Order("id.desc", nil).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("select recent transactions: %w", err)
	}

	var rows []transactionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}

	transactions := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, row.toModel())
	}
	return transactions, nil
}

func (r *SupabaseRepository) AddUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	if !kind.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	trimmed, err := normalizeCategoryName(name)
	if err != nil {
		return err
	}

	row := model.UserCategory{UserID: userID, Kind: kind, Name: trimmed}
	_, _, err = r.client.From("user_categories").Insert(row, false, "", "", "").Execute()
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) DeleteUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	data, _, err := r.client.From("user_categories").
		Delete("representation", "").
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Eq("category_type", string(kind)).
		Eq("category_name", name).
		Execute()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	var deleted []model.UserCategory
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("parse deleted categories: %w", err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SupabaseRepository) UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	data, _, err := r.client.From("user_categories").
		Select("category_name", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Eq("category_type", string(kind)).
		Order("category_name.asc", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}

	var rows []model.UserCategory
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	return names, nil
}

// postgrest отдаёт ошибку текстом; у нарушения уникальности код 23505.
func isPostgresUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(strings.ToLower(msg), "duplicate key")
}
