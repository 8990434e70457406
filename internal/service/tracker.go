package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/model"
	"kopilka/internal/repository"
)

// ExpenseTracker предоставляет операции над финансовыми данными поверх
// хранилища.
type ExpenseTracker struct {
	repo repository.Repository
}

func NewExpenseTracker(repo repository.Repository) *ExpenseTracker {
	return &ExpenseTracker{repo: repo}
}

func (s *ExpenseTracker) AddTransaction(ctx context.Context, userID int64, kind model.Kind, amount decimal.Decimal, category string) (model.Transaction, error) {
	return s.repo.AddTransaction(ctx, userID, kind, amount, category)
}

func (s *ExpenseTracker) LastTransaction(ctx context.Context, userID int64) (model.Transaction, error) {
	return s.repo.LastTransaction(ctx, userID)
}

func (s *ExpenseTracker) DeleteTransaction(ctx context.Context, id, userID int64) error {
	return s.repo.DeleteTransaction(ctx, id, userID)
}

func (s *ExpenseTracker) RecentTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	return s.repo.RecentTransactions(ctx, userID, limit)
}

func (s *ExpenseTracker) AddCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	return s.repo.AddUserCategory(ctx, userID, kind, name)
}

func (s *ExpenseTracker) DeleteCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	return s.repo.DeleteUserCategory(ctx, userID, kind, name)
}

func (s *ExpenseTracker) UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	return s.repo.UserCategories(ctx, userID, kind)
}

// PeriodReport строит отчет за произвольный полуинтервал [start, end).
func (s *ExpenseTracker) PeriodReport(ctx context.Context, userID int64, label string, start, end time.Time) (Report, error) {
	summary, err := s.repo.PeriodSummary(ctx, userID, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("period summary: %w", err)
	}
	return BuildReport(label, summary), nil
}

// CurrentMonthReport — отчет за текущий календарный месяц (UTC).
func (s *ExpenseTracker) CurrentMonthReport(ctx context.Context, userID int64, now time.Time) (Report, error) {
	start, end := CurrentMonthRange(now)
	label := fmt.Sprintf("текущий месяц (%s)", MonthLabel(start))
	return s.PeriodReport(ctx, userID, label, start, end)
}

// PreviousMonthReport — отчет за прошлый календарный месяц (UTC).
func (s *ExpenseTracker) PreviousMonthReport(ctx context.Context, userID int64, now time.Time) (Report, error) {
	start, end := PreviousMonthRange(now)
	label := fmt.Sprintf("прошлый месяц (%s)", MonthLabel(start))
	return s.PeriodReport(ctx, userID, label, start, end)
}
