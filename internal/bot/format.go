package bot

import (
	"fmt"
	"strconv"
	"strings"

	"kopilka/internal/model"
	"kopilka/internal/service"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatReport(r service.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Отчет за %s:\n\n", r.Label)
	fmt.Fprintf(&sb, "🟢 Доходы: %s\n", r.Income.StringFixed(2))
	fmt.Fprintf(&sb, "🔴 Расходы: %s\n\n", r.Expense.StringFixed(2))
	fmt.Fprintf(&sb, "💰 Баланс: %s\n", r.Balance.StringFixed(2))

	switch r.BreakdownState() {
	case service.BreakdownPresent:
		sb.WriteString("\n📈 Расходы по категориям:\n")
		for _, ct := range r.Breakdown {
			fmt.Fprintf(&sb, " - %s: %s\n", ct.Name, ct.Total.StringFixed(2))
		}
	case service.BreakdownUnavailable:
		sb.WriteString("\n📈 Детализация расходов недоступна.")
	case service.BreakdownNoExpenses:
		sb.WriteString("\n📈 Расходов в этом периоде не было.")
	}
	return sb.String()
}

func formatRecent(transactions []model.Transaction) string {
	lines := []string{fmt.Sprintf("🕒 Последние %d записей:\n", len(transactions))}
	for _, t := range transactions {
		symbol := "🔴"
		if t.Kind == model.KindIncome {
			symbol = "🟢"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s - %s",
			t.CreatedAt.Format("02.01.2006 15:04"), symbol, t.Amount.StringFixed(2), t.Category))
	}
	return strings.Join(lines, "\n")
}

func formatDeleteConfirm(t model.Transaction) string {
	label := "Расход"
	if t.Kind == model.KindIncome {
		label = "Доход"
	}
	return fmt.Sprintf("Удалить последнюю запись?\n\nТип: %s\nСумма: %s\nКатегория: %s",
		label, t.Amount.StringFixed(2), t.Category)
}

func welcomeText(firstName string) string {
	return fmt.Sprintf("Привет, %s!\nЯ бот для учета твоих финансов.\n\nИспользуй кнопки ниже.", firstName)
}

const helpText = "Я помогу тебе следить за доходами и расходами.\n\n" +
	"Основные команды:\n" +
	"/start - Начать работу / Сбросить состояние\n" +
	"/mycategories - Управление категориями\n" +
	"/report - Отчет за текущий месяц\n" +
	"/prevmonthreport - Отчет за прошлый месяц\n" +
	"/customreport - Отчет за период\n" +
	"/recent - Показать последние записи\n" +
	"/deletelast - Удалить последнюю запись\n" +
	"/cancel - Отменить текущее действие\n" +
	"/help - Показать эту справку\n\n" +
	"Используй кнопки внизу для быстрого доступа."
