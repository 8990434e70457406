package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"kopilka/internal/model"
)

// timeLayout — фиксированная ширина, чтобы строковое сравнение дат в SQL
// совпадало с хронологическим. Всегда UTC.
const timeLayout = "2006-01-02 15:04:05.000"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Один писатель: сериализует конкурентные мутации и избавляет от
	// SQLITE_BUSY при параллельных апдейтах.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID int64, kind model.Kind, amount decimal.Decimal, category string) (model.Transaction, error) {
	if err := validateTransaction(kind, amount, category); err != nil {
		return model.Transaction{}, err
	}

	t := model.Transaction{
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, kind, amount_cents, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.UserID, string(t.Kind), t.AmountCents(), t.Category, t.CreatedAt.Format(timeLayout))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return model.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) LastTransaction(ctx context.Context, userID int64) (model.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, kind, amount_cents, category, created_at
		 FROM transactions WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("select last transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) PeriodSummary(ctx context.Context, userID int64, start, end time.Time) (PeriodSummary, error) {
	summary := PeriodSummary{ExpenseByCategory: make(map[string]decimal.Decimal)}
	startStr := start.UTC().Format(timeLayout)
	endStr := end.UTC().Format(timeLayout)

	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, SUM(amount_cents) FROM transactions
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 GROUP BY kind`, userID, startStr, endStr)
	if err != nil {
		return summary, fmt.Errorf("select period totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var cents int64
		if err := rows.Scan(&kind, &cents); err != nil {
			return summary, fmt.Errorf("scan period total: %w", err)
		}
		switch model.Kind(kind) {
		case model.KindIncome:
			summary.Income = model.AmountFromCents(cents)
		case model.KindExpense:
			summary.Expense = model.AmountFromCents(cents)
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate period totals: %w", err)
	}

	catRows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) FROM transactions
		 WHERE user_id = ? AND kind = 'expense' AND created_at >= ? AND created_at < ?
		 GROUP BY category`, userID, startStr, endStr)
	if err != nil {
		return summary, fmt.Errorf("select expense categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var category string
		var cents int64
		if err := catRows.Scan(&category, &cents); err != nil {
			return summary, fmt.Errorf("scan expense category: %w", err)
		}
		summary.ExpenseByCategory[category] = model.AmountFromCents(cents)
	}
	if err := catRows.Err(); err != nil {
		return summary, fmt.Errorf("iterate expense categories: %w", err)
	}

	return summary, nil
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, amount_cents, category, created_at
		 FROM transactions WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

func (r *SQLiteRepository) AddUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	if !kind.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	trimmed, err := normalizeCategoryName(name)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_categories (user_id, category_type, category_name) VALUES (?, ?, ?)`,
		userID, string(kind), trimmed)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_categories WHERE user_id = ? AND category_type = ? AND category_name = ?`,
		userID, string(kind), name)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_name FROM user_categories
		 WHERE user_id = ? AND category_type = ? ORDER BY category_name`,
		userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return names, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var kind, createdAt string
	var cents int64
	if err := row.Scan(&t.ID, &t.UserID, &kind, &cents, &t.Category, &createdAt); err != nil {
		return model.Transaction{}, err
	}
	t.Kind = model.Kind(kind)
	t.Amount = model.AmountFromCents(cents)
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	t.CreatedAt = ts.UTC()
	return t, nil
}
