package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"kopilka/internal/charts"
	"kopilka/internal/dialog"
	"kopilka/internal/log"
	"kopilka/internal/service"
)

// Bot — телеграм-адаптер: превращает апдейты в события диалогового движка и
// отправляет его ответы обратно в чат.
type Bot struct {
	api     *tgbotapi.BotAPI
	tracker *service.ExpenseTracker
	engine  *dialog.Engine
	charts  *charts.Generator
	logger  *log.Logger
}

func NewBot(token string, tracker *service.ExpenseTracker, engine *dialog.Engine, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		tracker: tracker,
		engine:  engine,
		charts:  charts.NewGenerator(),
		logger:  logger.WithComponent("bot"),
	}, nil
}

// Start регистрирует меню команд и крутит long polling до отмены контекста.
// Апдейты разных пользователей обрабатываются параллельно; события одного
// пользователя сериализует движок.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.registerCommands(); err != nil {
		b.logger.Warn("failed to set bot commands", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// StartWebhook регистрирует webhook у Telegram и принимает апдейты по HTTP
// до отмены контекста. Альтернатива Start для развертывания за
// reverse-proxy.
func (b *Bot) StartWebhook(ctx context.Context, listenAddr, publicURL string) error {
	wh, err := tgbotapi.NewWebhook(publicURL)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		b.logger.Warn("failed to set bot commands", "error", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if err := b.HandleWebhook(r.Context(), body); err != nil {
			b.logger.Warn("malformed webhook update", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	b.logger.Info("webhook server started", "addr", listenAddr, "url", publicURL)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown webhook server: %w", err)
		}
		b.logger.Info("bot stopped")
		return nil
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// HandleWebhook обрабатывает тело одного webhook-запроса с апдейтом.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("unmarshal update: %w", err)
	}

	b.handleUpdate(ctx, update)
	return nil
}

func (b *Bot) registerCommands() error {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Начать работу / Сбросить"},
		tgbotapi.BotCommand{Command: "mycategories", Description: "Управление категориями"},
		tgbotapi.BotCommand{Command: "report", Description: "Отчет за текущий месяц"},
		tgbotapi.BotCommand{Command: "prevmonthreport", Description: "Отчет за прошлый месяц"},
		tgbotapi.BotCommand{Command: "customreport", Description: "Отчет за период"},
		tgbotapi.BotCommand{Command: "recent", Description: "Показать последние записи"},
		tgbotapi.BotCommand{Command: "deletelast", Description: "Удалить последнюю запись"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Отменить текущее действие"},
		tgbotapi.BotCommand{Command: "help", Description: "Помощь"},
	)
	_, err := b.api.Request(commands)
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	traceID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", "trace_id", traceID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, traceID, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, traceID, update.Message)
	}
}

// sendReplies отправляет ответы движка в чат.
func (b *Bot) sendReplies(chatID int64, replies []dialog.Reply) {
	for _, r := range replies {
		if r.Report != nil {
			b.sendReport(chatID, *r.Report)
			continue
		}

		msg := tgbotapi.NewMessage(chatID, r.Text)
		switch {
		case r.Menu != nil:
			msg.ReplyMarkup = inlineMarkup(r.Menu)
		case r.Keyboard == dialog.KeyboardMain:
			msg.ReplyMarkup = mainKeyboard()
		case r.Keyboard == dialog.KeyboardCancel:
			msg.ReplyMarkup = cancelKeyboard()
		}
		b.send(msg)
	}
}

// sendReport отправляет текст отчета и, если есть детализация, диаграмму.
func (b *Bot) sendReport(chatID int64, report service.Report) {
	msg := tgbotapi.NewMessage(chatID, formatReport(report))
	msg.ReplyMarkup = mainKeyboard()
	b.send(msg)

	png, err := b.charts.ExpensePie(report)
	if err != nil {
		b.logger.Error("failed to render expense chart", "error", err)
		return
	}
	if png == nil {
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "expenses.png", Bytes: png})
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("failed to send chart", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message", "chat_id", msg.ChatID, "error", err)
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	msg.ReplyMarkup = mainKeyboard()
	b.send(msg)
}
