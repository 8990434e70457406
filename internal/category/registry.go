package category

import (
	"context"
	"fmt"
	"sort"

	"kopilka/internal/model"
)

// Стандартные категории доступны каждому пользователю и не удаляются.
var (
	builtinExpense = []string{"Еда", "Транспорт", "Жилье", "Связь", "Развлечения", "Одежда", "Здоровье", "Другое"}
	builtinIncome  = []string{"Зарплата", "Подработка", "Подарок", "Проценты", "Другое"}
)

// Builtin возвращает копию списка стандартных категорий для типа.
func Builtin(kind model.Kind) []string {
	switch kind {
	case model.KindExpense:
		return append([]string(nil), builtinExpense...)
	case model.KindIncome:
		return append([]string(nil), builtinIncome...)
	}
	return nil
}

// Lister — минимальный срез хранилища, нужный реестру.
type Lister interface {
	UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error)
}

// Registry собирает действующий набор категорий пользователя: стандартные
// плюс пользовательские, без дублей, в лексикографическом порядке.
type Registry struct {
	store Lister
}

func NewRegistry(store Lister) *Registry {
	return &Registry{store: store}
}

func (r *Registry) Effective(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	userCats, err := r.store.UserCategories(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("list user categories: %w", err)
	}

	seen := make(map[string]struct{})
	var names []string
	for _, name := range append(Builtin(kind), userCats...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
