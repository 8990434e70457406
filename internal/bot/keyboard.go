package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kopilka/internal/dialog"
)

const (
	btnAddExpense       = "📊 Записать Расход"
	btnAddIncome        = "💰 Записать Доход"
	btnReport           = "📈 Отчет за месяц"
	btnPrevMonthReport  = "📅 Отчет за прошлый месяц"
	btnCustomReport     = "📊 Отчет за период"
	btnRecent           = "🕒 Последние записи"
	btnDeleteLast       = "❌ Удалить последнее"
	btnManageCategories = "⚙️ Мои Категории"
	btnCancel           = "Отмена"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddExpense),
			tgbotapi.NewKeyboardButton(btnAddIncome),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnReport),
			tgbotapi.NewKeyboardButton(btnPrevMonthReport),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCustomReport),
			tgbotapi.NewKeyboardButton(btnRecent),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDeleteLast),
			tgbotapi.NewKeyboardButton(btnManageCategories),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// inlineMarkup переводит абстрактное меню движка в inline-клавиатуру.
func inlineMarkup(menu *dialog.Menu) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func deleteConfirmKeyboard(transactionID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", deleteConfirmPrefix+formatID(transactionID)),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Отмена", deleteCancelTag),
		),
	)
}
