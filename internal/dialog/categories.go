package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kopilka/internal/model"
	"kopilka/internal/repository"
)

const (
	tagManageAdd    = "cat_manage:add"
	tagManageDelete = "cat_manage:delete"
	tagManageBack   = "cat_manage:back"
	tagManageMenu   = "cat_manage_menu"

	tagAddTypePrefix       = "cat_add_type:"
	tagDelTypePrefix       = "cat_del_type:"
	tagDeleteConfirmPrefix = "cat_delete_confirm:"
	tagNoCategoriesDelete  = "no_cats_to_delete"
	tagDeleteChooseType    = "cat_delete_choose_type"
)

// StartCategoryManagement открывает меню управления категориями.
func (e *Engine) StartCategoryManagement(ctx context.Context, userID int64) []Reply {
	s := e.lockSession(userID)
	defer s.mu.Unlock()
	defer e.release(s)

	if s.state != StateIdle {
		return e.busy()
	}
	return e.categoryOverview(ctx, s)
}

// categoryOverview показывает текущие пользовательские категории и действия
// над ними; переводит диалог в выбор действия.
func (e *Engine) categoryOverview(ctx context.Context, s *session) []Reply {
	expense, err := e.tracker.UserCategories(ctx, s.userID, model.KindExpense)
	if err != nil {
		return e.storeFailure(s, "list expense categories", err)
	}
	income, err := e.tracker.UserCategories(ctx, s.userID, model.KindIncome)
	if err != nil {
		return e.storeFailure(s, "list income categories", err)
	}

	s.kind = ""
	s.state = StateChoosingAction

	text := "⚙️ Управление категориями\n\n" +
		"Ваши категории расходов:\n" + formatCategoryList(expense) + "\n\n" +
		"Ваши категории доходов:\n" + formatCategoryList(income) + "\n\n" +
		"Выберите действие:"

	menu := &Menu{Rows: [][]Button{
		{{Label: "➕ Добавить категорию", Data: tagManageAdd}},
		{{Label: "➖ Удалить категорию", Data: tagManageDelete}},
		{{Label: "Назад", Data: tagManageBack}},
	}}
	return []Reply{{Text: text, Menu: menu}}
}

func formatCategoryList(names []string) string {
	if len(names) == 0 {
		return "Нет"
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, "- "+name)
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) onManageAction(ctx context.Context, s *session, ev Event) []Reply {
	switch ev.Data {
	case tagManageAdd:
		s.state = StateChoosingTypeToAdd
		return []Reply{{Text: "Выберите тип категории для добавления:", Menu: typeMenu(tagAddTypePrefix)}}
	case tagManageDelete:
		s.state = StateChoosingTypeToDelete
		return []Reply{{Text: "Выберите тип категории для удаления:", Menu: typeMenu(tagDelTypePrefix)}}
	case tagManageBack:
		e.clear(s)
		return []Reply{{Text: "Возврат в главное меню.", Keyboard: KeyboardMain}}
	case tagManageMenu:
		return e.categoryOverview(ctx, s)
	}
	return e.fallback(s, ev)
}

func typeMenu(prefix string) *Menu {
	return &Menu{Rows: [][]Button{
		{
			{Label: "Расход", Data: prefix + string(model.KindExpense)},
			{Label: "Доход", Data: prefix + string(model.KindIncome)},
		},
		{{Label: "<< Назад", Data: tagManageMenu}},
	}}
}

func (e *Engine) onTypeToAdd(ctx context.Context, s *session, ev Event) []Reply {
	if ev.Data == tagManageMenu {
		return e.categoryOverview(ctx, s)
	}
	raw, ok := strings.CutPrefix(ev.Data, tagAddTypePrefix)
	if !ok {
		return e.fallback(s, ev)
	}
	kind, err := model.ParseKind(raw)
	if err != nil {
		return e.fallback(s, ev)
	}

	s.kind = kind
	s.state = StateWaitingForNameToAdd

	typeText := "расхода"
	if kind == model.KindIncome {
		typeText = "дохода"
	}
	return []Reply{{Text: fmt.Sprintf("Введите название новой категории %s:", typeText), Keyboard: KeyboardCancel}}
}

func (e *Engine) onNewCategoryName(ctx context.Context, s *session, ev Event) []Reply {
	name := strings.TrimSpace(ev.Text)
	if name == "" {
		return []Reply{{Text: "Название категории не может быть пустым. Попробуйте еще раз или /cancel."}}
	}
	if len([]rune(name)) > repository.MaxCategoryNameLen {
		return []Reply{{Text: fmt.Sprintf("Название слишком длинное (макс. %d). Попробуйте еще раз или /cancel.", repository.MaxCategoryNameLen)}}
	}

	err := e.tracker.AddCategory(ctx, s.userID, s.kind, name)
	switch {
	case err == nil:
		e.clear(s)
		return []Reply{{Text: fmt.Sprintf("✅ Категория «%s» успешно добавлена!", name), Keyboard: KeyboardMain}}
	case errors.Is(err, repository.ErrDuplicateCategory):
		// Сценарий не сбрасывается: пользователь может ввести другое имя.
		return []Reply{{Text: fmt.Sprintf("❌ Не удалось добавить «%s». Возможно, она уже существует? Попробуйте другое название или /cancel.", name)}}
	default:
		var ve *repository.ValidationError
		if errors.As(err, &ve) {
			return []Reply{{Text: "Некорректное название. Попробуйте еще раз или /cancel."}}
		}
		// Ошибка хранилища здесь тоже не сбрасывает сценарий: ввод имени
		// можно повторить.
		e.logger.Error("store operation failed", "operation", "add category", "user_id", s.userID, "state", s.state.String(), "error", err)
		return []Reply{{Text: fmt.Sprintf("❌ Не удалось добавить «%s». Попробуйте еще раз или /cancel.", name)}}
	}
}

func (e *Engine) onTypeToDelete(ctx context.Context, s *session, ev Event) []Reply {
	if ev.Data == tagManageMenu {
		return e.categoryOverview(ctx, s)
	}
	raw, ok := strings.CutPrefix(ev.Data, tagDelTypePrefix)
	if !ok {
		return e.fallback(s, ev)
	}
	kind, err := model.ParseKind(raw)
	if err != nil {
		return e.fallback(s, ev)
	}

	names, err := e.tracker.UserCategories(ctx, s.userID, kind)
	if err != nil {
		return e.storeFailure(s, "list categories", err)
	}

	s.kind = kind
	s.state = StateChoosingCategoryToDelete

	typeText := "расходов"
	if kind == model.KindIncome {
		typeText = "доходов"
	}
	text := fmt.Sprintf("Выберите категорию %s для удаления:", typeText)
	if len(names) == 0 {
		text = fmt.Sprintf("У вас нет пользовательских категорий %s для удаления.", typeText)
	}
	return []Reply{{Text: text, Menu: deleteMenu(names)}}
}

func deleteMenu(names []string) *Menu {
	menu := &Menu{}
	if len(names) == 0 {
		menu.Rows = append(menu.Rows, []Button{{Label: "Нет категорий для удаления", Data: tagNoCategoriesDelete}})
	}
	for _, name := range names {
		menu.Rows = append(menu.Rows, []Button{{Label: "❌ " + name, Data: tagDeleteConfirmPrefix + name}})
	}
	menu.Rows = append(menu.Rows, []Button{{Label: "<< Назад", Data: tagDeleteChooseType}})
	return menu
}

func (e *Engine) onCategoryToDelete(ctx context.Context, s *session, ev Event) []Reply {
	switch ev.Data {
	case tagNoCategoriesDelete, tagDeleteChooseType:
		s.state = StateChoosingTypeToDelete
		return []Reply{{Text: "Выберите тип категории для удаления:", Menu: typeMenu(tagDelTypePrefix)}}
	}

	// Удаление идет по точному имени из кнопки, без обрезки пробелов.
	name, ok := strings.CutPrefix(ev.Data, tagDeleteConfirmPrefix)
	if !ok || name == "" {
		return e.fallback(s, ev)
	}

	err := e.tracker.DeleteCategory(ctx, s.userID, s.kind, name)
	switch {
	case err == nil:
		ack := Reply{Text: fmt.Sprintf("✅ Категория «%s» удалена.", name)}
		return append([]Reply{ack}, e.categoryOverview(ctx, s)...)
	case errors.Is(err, repository.ErrNotFound):
		e.clear(s)
		return []Reply{{Text: fmt.Sprintf("❌ Не удалось удалить «%s».", name), Keyboard: KeyboardMain}}
	default:
		return e.storeFailure(s, "delete category", err)
	}
}
