package dialog

import (
	"context"
	"sync"

	"kopilka/internal/log"
	"kopilka/internal/model"
	"kopilka/internal/service"
)

type transition func(ctx context.Context, s *session, ev Event) []Reply

type routeKey struct {
	state State
	event EventKind
}

// CategorySource отдает действующий набор категорий пользователя.
type CategorySource interface {
	Effective(ctx context.Context, userID int64, kind model.Kind) ([]string, error)
}

// Engine ведет многошаговые диалоги: хранит контексты пользователей,
// маршрутизирует события по таблице (состояние, форма события) -> переход и
// обрабатывает отмену из любого состояния.
type Engine struct {
	tracker  *service.ExpenseTracker
	registry CategorySource
	logger   *log.Logger
	routes   map[routeKey]transition

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewEngine(tracker *service.ExpenseTracker, registry CategorySource, logger *log.Logger) *Engine {
	e := &Engine{
		tracker:  tracker,
		registry: registry,
		logger:   logger.WithComponent("dialog"),
		sessions: make(map[int64]*session),
	}

	// Явная таблица маршрутизации; всё, чего в ней нет, уходит в fallback.
	e.routes = map[routeKey]transition{
		{StateAwaitingAmount, EventText}:   e.onAmount,
		{StateAwaitingCategory, EventMenu}: e.onCategoryChosen,
		{StateAwaitingCategory, EventText}: e.onCategoryText,

		{StateChoosingAction, EventMenu}:           e.onManageAction,
		{StateChoosingTypeToAdd, EventMenu}:        e.onTypeToAdd,
		{StateWaitingForNameToAdd, EventText}:      e.onNewCategoryName,
		{StateChoosingTypeToDelete, EventMenu}:     e.onTypeToDelete,
		{StateChoosingCategoryToDelete, EventMenu}: e.onCategoryToDelete,

		{StateAwaitingStartDate, EventText}: e.onStartDate,
		{StateAwaitingEndDate, EventText}:   e.onEndDate,
	}
	return e
}

// State возвращает текущее состояние диалога пользователя.
func (e *Engine) State(userID int64) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[userID]; ok {
		return s.state
	}
	return StateIdle
}

// Handle обрабатывает событие по текущему состоянию пользователя.
func (e *Engine) Handle(ctx context.Context, ev Event) []Reply {
	s := e.lockSession(ev.UserID)
	defer s.mu.Unlock()
	defer e.release(s)

	t, ok := e.routes[routeKey{s.state, ev.Kind}]
	if !ok {
		return e.fallback(s, ev)
	}
	return t(ctx, s, ev)
}

// Cancel сбрасывает диалог из любого состояния; в покое — это no-op с
// уведомлением.
func (e *Engine) Cancel(ctx context.Context, userID int64) []Reply {
	s := e.lockSession(userID)
	defer s.mu.Unlock()
	defer e.release(s)

	if s.state == StateIdle {
		return []Reply{{Text: "Нет активных действий для отмены.", Keyboard: KeyboardMain}}
	}
	e.logger.Info("cancelling dialog", "user_id", userID, "state", s.state.String())
	e.clear(s)
	return []Reply{{Text: "Действие отменено.", Keyboard: KeyboardMain}}
}

func (e *Engine) session(userID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		s = &session{userID: userID}
		e.sessions[userID] = s
	}
	return s
}

// lockSession возвращает контекст пользователя с захваченным мьютексом.
// Пока событие ждало очереди, контекст мог завершиться и выбыть из таблицы;
// переход по такому указателю был бы потерян, поэтому после захвата
// актуальность проверяется заново.
func (e *Engine) lockSession(userID int64) *session {
	for {
		s := e.session(userID)
		s.mu.Lock()
		e.mu.Lock()
		current := e.sessions[userID] == s
		e.mu.Unlock()
		if current {
			return s
		}
		s.mu.Unlock()
	}
}

// release убирает контекст из таблицы, если событие оставило его в покое.
// Вызывается до освобождения мьютекса контекста.
func (e *Engine) release(s *session) {
	if s.state != StateIdle {
		return
	}
	e.mu.Lock()
	delete(e.sessions, s.userID)
	e.mu.Unlock()
}

// clear завершает сценарий: контекст сбрасывается, из таблицы его уберет
// release на выходе из события.
func (e *Engine) clear(s *session) {
	s.reset()
}

// fallback — ответ на событие, не предусмотренное в текущем состоянии.
func (e *Engine) fallback(s *session, ev Event) []Reply {
	if s.state == StateIdle {
		if ev.Kind == EventMenu {
			return []Reply{{Text: "Кнопка больше не активна. Начните заново.", Keyboard: KeyboardMain}}
		}
		return []Reply{{Text: "Выберите действие с помощью кнопок ниже.", Keyboard: KeyboardMain}}
	}
	if ev.Kind == EventText {
		return []Reply{{Text: "Пожалуйста, используйте кнопки выше или /cancel."}}
	}
	return []Reply{{Text: "Неожиданный выбор. Продолжите текущее действие или /cancel."}}
}

// storeFailure логирует ошибку хранилища и завершает сценарий, чтобы диалог
// не завис в недостижимом состоянии.
func (e *Engine) storeFailure(s *session, op string, err error) []Reply {
	e.logger.Error("store operation failed", "operation", op, "user_id", s.userID, "state", s.state.String(), "error", err)
	e.clear(s)
	return []Reply{{Text: "Что-то пошло не так. Попробуйте еще раз.", Keyboard: KeyboardMain}}
}
