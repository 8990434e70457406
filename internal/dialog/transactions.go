package dialog

import (
	"context"
	"fmt"
	"strings"

	"kopilka/internal/model"
)

// Теги кнопок выбора категории несут тип транзакции, чтобы отсечь нажатия
// из чужого сценария.
const (
	tagExpenseCategory = "exp_cat"
	tagIncomeCategory  = "inc_cat"
)

func categoryTag(kind model.Kind) string {
	if kind == model.KindIncome {
		return tagIncomeCategory
	}
	return tagExpenseCategory
}

// StartTransaction начинает сценарий записи расхода или дохода.
func (e *Engine) StartTransaction(ctx context.Context, userID int64, kind model.Kind) []Reply {
	s := e.lockSession(userID)
	defer s.mu.Unlock()
	defer e.release(s)

	if s.state != StateIdle {
		return e.busy()
	}

	s.state = StateAwaitingAmount
	s.kind = kind

	prompt := "Введите сумму расхода:"
	if kind == model.KindIncome {
		prompt = "Введите сумму дохода:"
	}
	return []Reply{{Text: prompt, Keyboard: KeyboardCancel}}
}

func (e *Engine) onAmount(ctx context.Context, s *session, ev Event) []Reply {
	amount, err := parseAmount(ev.Text)
	if err != nil {
		// Состояние не меняется, пользователь вводит сумму заново.
		return []Reply{{Text: "Введите корректную сумму (> 0)."}}
	}

	categories, err := e.registry.Effective(ctx, s.userID, s.kind)
	if err != nil {
		return e.storeFailure(s, "effective categories", err)
	}
	if len(categories) == 0 {
		e.clear(s)
		return []Reply{{Text: "Нет доступных категорий. Добавьте их в «Мои Категории».", Keyboard: KeyboardMain}}
	}

	s.amount = amount
	s.state = StateAwaitingCategory

	prompt := "Категория расхода:"
	if s.kind == model.KindIncome {
		prompt = "Категория дохода:"
	}
	return []Reply{{Text: prompt, Menu: categoryMenu(categories, s.kind)}}
}

func (e *Engine) onCategoryChosen(ctx context.Context, s *session, ev Event) []Reply {
	tag, name, ok := strings.Cut(ev.Data, ":")
	if !ok || tag != categoryTag(s.kind) || name == "" {
		return []Reply{{Text: "Пожалуйста, выберите категорию, используя кнопки выше."}}
	}

	t, err := e.tracker.AddTransaction(ctx, s.userID, s.kind, s.amount, name)
	if err != nil {
		e.logger.Error("add transaction failed", "user_id", s.userID, "error", err)
		e.clear(s)
		return []Reply{{Text: "Не удалось сохранить запись.", Keyboard: KeyboardMain}}
	}

	label := "Расход"
	if t.Kind == model.KindIncome {
		label = "Доход"
	}
	e.clear(s)
	return []Reply{{
		Text:     fmt.Sprintf("%s на сумму %s в категории «%s» успешно записан!", label, t.Amount.StringFixed(2), t.Category),
		Keyboard: KeyboardMain,
	}}
}

func (e *Engine) onCategoryText(ctx context.Context, s *session, ev Event) []Reply {
	return []Reply{{Text: "Пожалуйста, выберите категорию, используя кнопки выше."}}
}

// categoryMenu раскладывает категории по две в ряд, если их больше четырех.
func categoryMenu(names []string, kind model.Kind) *Menu {
	tag := categoryTag(kind)
	columns := 1
	if len(names) > 4 {
		columns = 2
	}

	menu := &Menu{}
	var row []Button
	for _, name := range names {
		row = append(row, Button{Label: name, Data: tag + ":" + name})
		if len(row) == columns {
			menu.Rows = append(menu.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		menu.Rows = append(menu.Rows, row)
	}
	return menu
}

func (e *Engine) busy() []Reply {
	return []Reply{{Text: "Сначала завершите текущее действие или отправьте /cancel."}}
}
