package dialog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kopilka/internal/category"
	"kopilka/internal/log"
	"kopilka/internal/model"
	"kopilka/internal/repository"
	"kopilka/internal/service"
)

// fakeRepo — память вместо базы, с теми же контрактами ошибок.
type fakeRepo struct {
	mu           sync.Mutex
	nextID       int64
	transactions []model.Transaction
	categories   map[model.Kind][]string

	addCategoryErr error
	listErr        error
	addDelay       time.Duration
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{categories: make(map[model.Kind][]string)}
}

func (f *fakeRepo) AddTransaction(ctx context.Context, userID int64, kind model.Kind, amount decimal.Decimal, cat string) (model.Transaction, error) {
	if f.addDelay > 0 {
		time.Sleep(f.addDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := model.Transaction{
		ID:        f.nextID,
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Category:  cat,
		CreatedAt: time.Now().UTC(),
	}
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeRepo) LastTransaction(ctx context.Context, userID int64) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].UserID == userID {
			return f.transactions[i], nil
		}
	}
	return model.Transaction{}, repository.ErrNotFound
}

func (f *fakeRepo) DeleteTransaction(ctx context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.transactions {
		if t.ID == id && t.UserID == userID {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepo) PeriodSummary(ctx context.Context, userID int64, start, end time.Time) (repository.PeriodSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := repository.PeriodSummary{ExpenseByCategory: make(map[string]decimal.Decimal)}
	for _, t := range f.transactions {
		if t.UserID != userID || t.CreatedAt.Before(start) || !t.CreatedAt.Before(end) {
			continue
		}
		if t.Kind == model.KindIncome {
			summary.Income = summary.Income.Add(t.Amount)
		} else {
			summary.Expense = summary.Expense.Add(t.Amount)
			summary.ExpenseByCategory[t.Category] = summary.ExpenseByCategory[t.Category].Add(t.Amount)
		}
	}
	return summary, nil
}

func (f *fakeRepo) RecentTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for i := len(f.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if f.transactions[i].UserID == userID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) AddUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	if f.addCategoryErr != nil {
		return f.addCategoryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	trimmed := strings.TrimSpace(name)
	for _, existing := range f.categories[kind] {
		if existing == trimmed {
			return repository.ErrDuplicateCategory
		}
	}
	f.categories[kind] = append(f.categories[kind], trimmed)
	return nil
}

func (f *fakeRepo) DeleteUserCategory(ctx context.Context, userID int64, kind model.Kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.categories[kind] {
		if existing == name {
			f.categories[kind] = append(f.categories[kind][:i], f.categories[kind][i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepo) UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.categories[kind]...), nil
}

func (f *fakeRepo) Close() error { return nil }

type stubCategories struct {
	names []string
	err   error
}

func (s *stubCategories) Effective(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	return s.names, s.err
}

func newTestEngine(t *testing.T) (*Engine, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	tracker := service.NewExpenseTracker(repo)
	engine := NewEngine(tracker, category.NewRegistry(repo), log.New(slog.LevelError))
	return engine, repo
}

const testUser int64 = 100

func text(t *testing.T, replies []Reply) string {
	t.Helper()
	if len(replies) == 0 {
		t.Fatal("expected at least one reply")
	}
	return replies[0].Text
}

func TestAmountAccepted(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "12,50"})

	if engine.State(testUser) != StateAwaitingCategory {
		t.Fatalf("state = %v, want awaiting_category", engine.State(testUser))
	}
	if replies[0].Menu == nil {
		t.Error("expected a category menu")
	}
}

func TestAmountRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)

	for _, input := range []string{"-5", "0", "abc", "12,,5", "99999999999999999999"} {
		replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: input})
		if engine.State(testUser) != StateAwaitingAmount {
			t.Errorf("input %q: state = %v, want awaiting_amount", input, engine.State(testUser))
		}
		if !strings.Contains(text(t, replies), "корректную сумму") {
			t.Errorf("input %q: unexpected reply %q", input, text(t, replies))
		}
	}
}

func TestTransactionFlow(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "12,50"})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: "exp_cat:Еда"})

	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "12.50") || !strings.Contains(text(t, replies), "Еда") {
		t.Errorf("unexpected confirmation: %q", text(t, replies))
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(repo.transactions))
	}
	tr := repo.transactions[0]
	if tr.Kind != model.KindExpense || !tr.Amount.Equal(decimal.NewFromFloat(12.5)) || tr.Category != "Еда" {
		t.Errorf("unexpected transaction: %+v", tr)
	}
}

func TestCategoryWrongKindRejected(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindIncome)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "100"})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: "exp_cat:Еда"})

	if engine.State(testUser) != StateAwaitingCategory {
		t.Errorf("state = %v, want awaiting_category", engine.State(testUser))
	}
	if len(repo.transactions) != 0 {
		t.Errorf("no transaction must be stored, got %d", len(repo.transactions))
	}
}

func TestCategoryFreeTextRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "50"})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Еда"})

	if engine.State(testUser) != StateAwaitingCategory {
		t.Errorf("state = %v, want awaiting_category", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "кнопки") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
}

func TestEmptyCategorySetAbortsFlow(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(service.NewExpenseTracker(repo), &stubCategories{}, log.New(slog.LevelError))
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "10"})

	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "категори") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
}

func TestCategorySourceFailureClearsContext(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(service.NewExpenseTracker(repo), &stubCategories{err: context.DeadlineExceeded}, log.New(slog.LevelError))
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "10"})

	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle after store failure", engine.State(testUser))
	}
}

func TestCancelFromEveryState(t *testing.T) {
	ctx := context.Background()

	steps := map[State]func(e *Engine){
		StateAwaitingAmount: func(e *Engine) {
			e.StartTransaction(ctx, testUser, model.KindExpense)
		},
		StateAwaitingCategory: func(e *Engine) {
			e.StartTransaction(ctx, testUser, model.KindExpense)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "10"})
		},
		StateChoosingAction: func(e *Engine) {
			e.StartCategoryManagement(ctx, testUser)
		},
		StateChoosingTypeToAdd: func(e *Engine) {
			e.StartCategoryManagement(ctx, testUser)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
		},
		StateWaitingForNameToAdd: func(e *Engine) {
			e.StartCategoryManagement(ctx, testUser)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagAddTypePrefix + "expense"})
		},
		StateChoosingTypeToDelete: func(e *Engine) {
			e.StartCategoryManagement(ctx, testUser)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageDelete})
		},
		StateChoosingCategoryToDelete: func(e *Engine) {
			e.StartCategoryManagement(ctx, testUser)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageDelete})
			e.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagDelTypePrefix + "expense"})
		},
		StateAwaitingStartDate: func(e *Engine) {
			e.StartCustomReport(ctx, testUser)
		},
		StateAwaitingEndDate: func(e *Engine) {
			e.StartCustomReport(ctx, testUser)
			e.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "01.01.2024"})
		},
	}

	for state, drive := range steps {
		t.Run(state.String(), func(t *testing.T) {
			engine, _ := newTestEngine(t)
			drive(engine)
			if engine.State(testUser) != state {
				t.Fatalf("setup reached %v, want %v", engine.State(testUser), state)
			}

			replies := engine.Cancel(ctx, testUser)
			if engine.State(testUser) != StateIdle {
				t.Errorf("state after cancel = %v, want idle", engine.State(testUser))
			}
			if !strings.Contains(text(t, replies), "отменено") {
				t.Errorf("unexpected cancel reply: %q", text(t, replies))
			}
		})
	}
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	engine, _ := newTestEngine(t)

	replies := engine.Cancel(context.Background(), testUser)
	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "Нет активных действий") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
}

func TestAddCategoryFlow(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagAddTypePrefix + "expense"})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Кофе"})

	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "успешно добавлена") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
	if len(repo.categories[model.KindExpense]) != 1 || repo.categories[model.KindExpense][0] != "Кофе" {
		t.Errorf("category not stored: %v", repo.categories)
	}
}

func TestDuplicateCategoryKeepsFlowRetryable(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	repo.categories[model.KindExpense] = []string{"Кофе"}

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagAddTypePrefix + "expense"})

	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Кофе"})
	if engine.State(testUser) != StateWaitingForNameToAdd {
		t.Fatalf("duplicate must keep state, got %v", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "уже существует") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}

	// Другое имя проходит без перезапуска сценария.
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Чай"})
	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if len(repo.categories[model.KindExpense]) != 2 {
		t.Errorf("categories = %v", repo.categories[model.KindExpense])
	}
}

func TestStoreErrorKeepsNameEntryRetryable(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	repo.addCategoryErr = context.DeadlineExceeded

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagAddTypePrefix + "expense"})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Кофе"})

	if engine.State(testUser) != StateWaitingForNameToAdd {
		t.Fatalf("store error must keep state, got %v", engine.State(testUser))
	}

	repo.addCategoryErr = nil
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "Кофе"})
	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle after retry", engine.State(testUser))
	}
}

func TestCategoryNameValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageAdd})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagAddTypePrefix + "income"})

	for _, input := range []string{"   ", strings.Repeat("я", repository.MaxCategoryNameLen+1)} {
		engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: input})
		if engine.State(testUser) != StateWaitingForNameToAdd {
			t.Errorf("input %q: state = %v, want waiting_for_name_to_add", input, engine.State(testUser))
		}
	}
}

func TestDeleteCategoryFlow(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	repo.categories[model.KindExpense] = []string{"Кофе"}

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageDelete})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagDelTypePrefix + "expense"})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagDeleteConfirmPrefix + "Кофе"})

	if !strings.Contains(text(t, replies), "удалена") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
	// Удаление возвращает в обновленное меню управления.
	if engine.State(testUser) != StateChoosingAction {
		t.Errorf("state = %v, want choosing_action", engine.State(testUser))
	}
	if len(repo.categories[model.KindExpense]) != 0 {
		t.Errorf("category not deleted: %v", repo.categories[model.KindExpense])
	}
}

func TestDeleteCategoryEmptyListShowsNoop(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartCategoryManagement(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagManageDelete})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagDelTypePrefix + "expense"})

	menu := replies[0].Menu
	if menu == nil {
		t.Fatal("expected a menu")
	}
	if menu.Rows[0][0].Data != tagNoCategoriesDelete {
		t.Errorf("first row = %+v, want noop button", menu.Rows[0][0])
	}

	// Кнопка-заглушка уводит назад к выбору типа.
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: tagNoCategoriesDelete})
	if engine.State(testUser) != StateChoosingTypeToDelete {
		t.Errorf("state = %v, want choosing_type_to_delete", engine.State(testUser))
	}
}

func TestCustomReportOneDaySpan(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	repo.transactions = append(repo.transactions, model.Transaction{
		ID: 1, UserID: testUser, Kind: model.KindExpense,
		Amount:    decimal.NewFromInt(30),
		Category:  "Еда",
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	})

	engine.StartCustomReport(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "01.01.2024"})
	// Конец равен началу: период покрывает ровно один день.
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "01.01.2024"})

	if engine.State(testUser) != StateIdle {
		t.Fatalf("state = %v, want idle", engine.State(testUser))
	}
	report := replies[0].Report
	if report == nil {
		t.Fatal("expected a report reply")
	}
	if report.Label != "период с 01.01.2024 по 01.01.2024" {
		t.Errorf("label = %q", report.Label)
	}
	if !report.Expense.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expense = %s, want 30", report.Expense)
	}
}

func TestCustomReportEndBeforeStart(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartCustomReport(ctx, testUser)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "05.01.2024"})
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "04.01.2024"})

	if engine.State(testUser) != StateAwaitingEndDate {
		t.Errorf("state = %v, want awaiting_end_date", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "раньше даты начала") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}

	// Корректная дата после отказа завершает сценарий.
	final := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "06.01.2024"})
	if engine.State(testUser) != StateIdle {
		t.Errorf("state = %v, want idle", engine.State(testUser))
	}
	if final[0].Report == nil {
		t.Error("expected a report reply")
	}
}

func TestCustomReportBadDateFormat(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartCustomReport(ctx, testUser)
	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "2024-01-01"})

	if engine.State(testUser) != StateAwaitingStartDate {
		t.Errorf("state = %v, want awaiting_start_date", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "Неверный формат") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
}

func TestStartGuardWhileBusy(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	replies := engine.StartCustomReport(ctx, testUser)

	if engine.State(testUser) != StateAwaitingAmount {
		t.Errorf("state = %v, want awaiting_amount", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "завершите текущее") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}
}

func TestIdleFallback(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	replies := engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "привет"})
	if replies[0].Keyboard != KeyboardMain {
		t.Errorf("idle fallback must show the main keyboard")
	}

	stale := engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: "exp_cat:Еда"})
	if !strings.Contains(text(t, stale), "не активна") {
		t.Errorf("unexpected stale-button reply: %q", text(t, stale))
	}
}

func TestStartDuringSlowCommitIsNotLost(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	repo.addDelay = 50 * time.Millisecond

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "10"})

	// Терминальный переход держит контекст заблокированным на время
	// записи в хранилище; запуск нового сценария приходит в этот момент.
	done := make(chan struct{})
	go func() {
		engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: "exp_cat:Еда"})
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	replies := engine.StartCustomReport(ctx, testUser)
	<-done

	if engine.State(testUser) != StateAwaitingStartDate {
		t.Fatalf("state = %v, want awaiting_start_date", engine.State(testUser))
	}
	if !strings.Contains(text(t, replies), "дату начала") {
		t.Errorf("unexpected reply: %q", text(t, replies))
	}

	// Новый сценарий действительно живой, а не потерянный переход.
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "01.01.2024"})
	if engine.State(testUser) != StateAwaitingEndDate {
		t.Errorf("state = %v, want awaiting_end_date", engine.State(testUser))
	}
}

func sessionCount(e *Engine) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func TestIdleEventsLeaveNoSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.Handle(ctx, Event{UserID: testUser, Kind: EventText, Text: "привет"})
	engine.Handle(ctx, Event{UserID: testUser, Kind: EventMenu, Data: "exp_cat:Еда"})
	engine.Cancel(ctx, testUser)

	if n := sessionCount(engine); n != 0 {
		t.Fatalf("idle events must not retain sessions, got %d", n)
	}

	engine.StartTransaction(ctx, testUser, model.KindExpense)
	if n := sessionCount(engine); n != 1 {
		t.Errorf("active flow must own a session, got %d", n)
	}

	engine.Cancel(ctx, testUser)
	if n := sessionCount(engine); n != 0 {
		t.Errorf("cancel must release the session, got %d", n)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	engine.StartTransaction(ctx, 1, model.KindExpense)
	engine.StartCustomReport(ctx, 2)

	if engine.State(1) != StateAwaitingAmount {
		t.Errorf("user 1 state = %v", engine.State(1))
	}
	if engine.State(2) != StateAwaitingStartDate {
		t.Errorf("user 2 state = %v", engine.State(2))
	}

	engine.Cancel(ctx, 1)
	if engine.State(2) != StateAwaitingStartDate {
		t.Errorf("cancel for user 1 must not touch user 2, state = %v", engine.State(2))
	}
}
