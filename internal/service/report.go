package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/repository"
)

// BreakdownState описывает вырожденные случаи детализации расходов.
type BreakdownState int

const (
	// BreakdownPresent — есть хотя бы одна категория.
	BreakdownPresent BreakdownState = iota
	// BreakdownUnavailable — расходы есть, а детализации нет.
	BreakdownUnavailable
	// BreakdownNoExpenses — расходов в периоде не было.
	BreakdownNoExpenses
)

type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
}

// Report — структурированный отчет за период, без привязки к формату вывода.
type Report struct {
	Label     string
	Income    decimal.Decimal
	Expense   decimal.Decimal
	Balance   decimal.Decimal
	Breakdown []CategoryTotal
}

func (r Report) BreakdownState() BreakdownState {
	if len(r.Breakdown) > 0 {
		return BreakdownPresent
	}
	if r.Expense.IsPositive() {
		return BreakdownUnavailable
	}
	return BreakdownNoExpenses
}

// BuildReport собирает отчет из агрегата хранилища. Категории упорядочены по
// убыванию суммы, при равенстве — по имени.
func BuildReport(label string, summary repository.PeriodSummary) Report {
	breakdown := make([]CategoryTotal, 0, len(summary.ExpenseByCategory))
	for name, total := range summary.ExpenseByCategory {
		breakdown = append(breakdown, CategoryTotal{Name: name, Total: total})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Total.Equal(breakdown[j].Total) {
			return breakdown[i].Total.GreaterThan(breakdown[j].Total)
		}
		return breakdown[i].Name < breakdown[j].Name
	})

	return Report{
		Label:     label,
		Income:    summary.Income,
		Expense:   summary.Expense,
		Balance:   summary.Income.Sub(summary.Expense),
		Breakdown: breakdown,
	}
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// CurrentMonthRange — полуинтервал текущего календарного месяца в UTC.
func CurrentMonthRange(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// PreviousMonthRange — полуинтервал предыдущего календарного месяца в UTC.
func PreviousMonthRange(now time.Time) (start, end time.Time) {
	_, end = previousMonthBounds(now)
	start = end.AddDate(0, -1, 0)
	return start, end
}

func previousMonthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfCurrent.AddDate(0, -1, 0), firstOfCurrent
}

// MonthLabel — "Август 2026" для первого дня месяца.
func MonthLabel(start time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[start.Month()-1], start.Year())
}
