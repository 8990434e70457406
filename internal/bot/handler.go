package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kopilka/internal/dialog"
	"kopilka/internal/model"
	"kopilka/internal/repository"
)

const (
	deleteConfirmPrefix = "delete_confirm:"
	deleteCancelTag     = "delete_cancel"

	recentLimit = 10
)

func (b *Bot) handleMessage(ctx context.Context, traceID string, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID

	if message.IsCommand() {
		b.handleCommand(ctx, traceID, message)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == btnCancel {
		b.sendReplies(chatID, b.engine.Cancel(ctx, userID))
		return
	}

	// Кнопки главного меню запускают сценарии только из покоя; в активном
	// сценарии всё уходит движку как свободный текст.
	if b.engine.State(userID) == dialog.StateIdle {
		if handled := b.handleMenuButton(ctx, traceID, chatID, userID, text); handled {
			return
		}
	}

	b.sendReplies(chatID, b.engine.Handle(ctx, dialog.Event{
		UserID: userID,
		Kind:   dialog.EventText,
		Text:   message.Text,
	}))
}

// handleMenuButton сопоставляет текст кнопки главного меню с действием.
func (b *Bot) handleMenuButton(ctx context.Context, traceID string, chatID, userID int64, text string) bool {
	switch text {
	case btnAddExpense:
		b.sendReplies(chatID, b.engine.StartTransaction(ctx, userID, model.KindExpense))
	case btnAddIncome:
		b.sendReplies(chatID, b.engine.StartTransaction(ctx, userID, model.KindIncome))
	case btnReport:
		b.sendCurrentMonthReport(ctx, traceID, chatID, userID)
	case btnPrevMonthReport:
		b.sendPreviousMonthReport(ctx, traceID, chatID, userID)
	case btnCustomReport:
		b.sendReplies(chatID, b.engine.StartCustomReport(ctx, userID))
	case btnRecent:
		b.sendRecent(ctx, traceID, chatID, userID)
	case btnDeleteLast:
		b.sendDeleteLastConfirm(ctx, traceID, chatID, userID)
	case btnManageCategories:
		b.sendReplies(chatID, b.engine.StartCategoryManagement(ctx, userID))
	default:
		return false
	}
	return true
}

func (b *Bot) handleCommand(ctx context.Context, traceID string, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		// Сбрасывает зависший сценарий, приветствие не зависит от исхода.
		b.engine.Cancel(ctx, userID)
		msg := tgbotapi.NewMessage(chatID, welcomeText(message.From.FirstName))
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
	case "help":
		msg := tgbotapi.NewMessage(chatID, helpText)
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
	case "cancel":
		b.sendReplies(chatID, b.engine.Cancel(ctx, userID))
	case "report":
		b.sendCurrentMonthReport(ctx, traceID, chatID, userID)
	case "prevmonthreport":
		b.sendPreviousMonthReport(ctx, traceID, chatID, userID)
	case "customreport":
		b.sendReplies(chatID, b.engine.StartCustomReport(ctx, userID))
	case "recent":
		b.sendRecent(ctx, traceID, chatID, userID)
	case "deletelast":
		b.sendDeleteLastConfirm(ctx, traceID, chatID, userID)
	case "mycategories":
		b.sendReplies(chatID, b.engine.StartCategoryManagement(ctx, userID))
	}
}

func (b *Bot) handleCallback(ctx context.Context, traceID string, callback *tgbotapi.CallbackQuery) {
	if callback.From == nil || callback.Message == nil {
		return
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	// Убираем кнопки под нажатым сообщением, чтобы не собирать повторные
	// нажатия по устаревшему меню.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Debug("failed to clear inline keyboard", "trace_id", traceID, "error", err)
	}

	switch {
	case strings.HasPrefix(callback.Data, deleteConfirmPrefix):
		b.confirmDeleteLast(ctx, traceID, chatID, userID, callback.Data)
	case callback.Data == deleteCancelTag:
		msg := tgbotapi.NewMessage(chatID, "Удаление отменено.")
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
	default:
		b.sendReplies(chatID, b.engine.Handle(ctx, dialog.Event{
			UserID: userID,
			Kind:   dialog.EventMenu,
			Data:   callback.Data,
		}))
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", "trace_id", traceID, "error", err)
	}
}

func (b *Bot) sendCurrentMonthReport(ctx context.Context, traceID string, chatID, userID int64) {
	report, err := b.tracker.CurrentMonthReport(ctx, userID, time.Now())
	if err != nil {
		b.logger.Error("current month report failed", "trace_id", traceID, "user_id", userID, "error", err)
		b.sendError(chatID, "Ошибка при формировании отчета.")
		return
	}
	b.sendReport(chatID, report)
}

func (b *Bot) sendPreviousMonthReport(ctx context.Context, traceID string, chatID, userID int64) {
	report, err := b.tracker.PreviousMonthReport(ctx, userID, time.Now())
	if err != nil {
		b.logger.Error("previous month report failed", "trace_id", traceID, "user_id", userID, "error", err)
		b.sendError(chatID, "Ошибка при формировании отчета.")
		return
	}
	b.sendReport(chatID, report)
}

func (b *Bot) sendRecent(ctx context.Context, traceID string, chatID, userID int64) {
	transactions, err := b.tracker.RecentTransactions(ctx, userID, recentLimit)
	if err != nil {
		b.logger.Error("recent transactions failed", "trace_id", traceID, "user_id", userID, "error", err)
		b.sendError(chatID, "Ошибка при получении записей.")
		return
	}
	if len(transactions) == 0 {
		msg := tgbotapi.NewMessage(chatID, "Нет записей.")
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatRecent(transactions))
	msg.ReplyMarkup = mainKeyboard()
	b.send(msg)
}

// sendDeleteLastConfirm показывает последнюю запись и кнопки подтверждения.
// Подтверждение не создает диалогового состояния: id записи едет в теге
// кнопки.
func (b *Bot) sendDeleteLastConfirm(ctx context.Context, traceID string, chatID, userID int64) {
	last, err := b.tracker.LastTransaction(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		msg := tgbotapi.NewMessage(chatID, "Нет записей для удаления.")
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
		return
	}
	if err != nil {
		b.logger.Error("last transaction lookup failed", "trace_id", traceID, "user_id", userID, "error", err)
		b.sendError(chatID, "Ошибка при поиске последней записи.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatDeleteConfirm(last))
	msg.ReplyMarkup = deleteConfirmKeyboard(last.ID)
	b.send(msg)
}

func (b *Bot) confirmDeleteLast(ctx context.Context, traceID string, chatID, userID int64, data string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, deleteConfirmPrefix), 10, 64)
	if err != nil {
		b.logger.Warn("invalid delete confirm tag", "trace_id", traceID, "data", data)
		b.sendError(chatID, "Не удалось удалить запись.")
		return
	}

	err = b.tracker.DeleteTransaction(ctx, id, userID)
	switch {
	case err == nil:
		msg := tgbotapi.NewMessage(chatID, "✅ Запись удалена.")
		msg.ReplyMarkup = mainKeyboard()
		b.send(msg)
	case errors.Is(err, repository.ErrNotFound):
		b.sendError(chatID, "Не удалось удалить: запись не найдена.")
	default:
		b.logger.Error("delete transaction failed", "trace_id", traceID, "user_id", userID, "id", id, "error", err)
		b.sendError(chatID, "Не удалось удалить запись.")
	}
}
