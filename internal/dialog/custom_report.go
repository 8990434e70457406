package dialog

import (
	"context"
	"fmt"
)

// StartCustomReport начинает двухшаговый сценарий отчета за период.
func (e *Engine) StartCustomReport(ctx context.Context, userID int64) []Reply {
	s := e.lockSession(userID)
	defer s.mu.Unlock()
	defer e.release(s)

	if s.state != StateIdle {
		return e.busy()
	}

	s.state = StateAwaitingStartDate
	return []Reply{{
		Text:     fmt.Sprintf("Введите дату начала периода в формате %s (например, 01.01.2024):", DateLayout),
		Keyboard: KeyboardCancel,
	}}
}

func (e *Engine) onStartDate(ctx context.Context, s *session, ev Event) []Reply {
	start, err := parseDate(ev.Text)
	if err != nil {
		return []Reply{{Text: fmt.Sprintf("Неверный формат даты. Введите %s или «Отмена».", DateLayout)}}
	}

	s.startDate = start
	s.state = StateAwaitingEndDate
	return []Reply{{
		Text:     fmt.Sprintf("Отлично! Теперь введите дату конца периода в формате %s:", DateLayout),
		Keyboard: KeyboardCancel,
	}}
}

func (e *Engine) onEndDate(ctx context.Context, s *session, ev Event) []Reply {
	endDay, err := parseDate(ev.Text)
	if err != nil {
		return []Reply{{Text: fmt.Sprintf("Неверный формат даты. Введите %s или «Отмена».", DateLayout)}}
	}

	// Конец периода включительно: полуинтервал закрывается полуночью
	// следующего дня.
	end := endDay.AddDate(0, 0, 1)
	if !end.After(s.startDate) {
		return []Reply{{Text: "Дата конца не может быть раньше даты начала."}}
	}

	label := fmt.Sprintf("период с %s по %s", s.startDate.Format(DateLayout), endDay.Format(DateLayout))
	report, err := e.tracker.PeriodReport(ctx, s.userID, label, s.startDate, end)
	if err != nil {
		return e.storeFailure(s, "period report", err)
	}

	e.clear(s)
	return []Reply{{Report: &report, Keyboard: KeyboardMain}}
}
