package category

import (
	"context"
	"errors"
	"sort"
	"testing"

	"kopilka/internal/model"
)

type fakeLister struct {
	names map[model.Kind][]string
	err   error
}

func (f *fakeLister) UserCategories(ctx context.Context, userID int64, kind model.Kind) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.names[kind], nil
}

func TestEffectiveContainsBuiltins(t *testing.T) {
	reg := NewRegistry(&fakeLister{})

	for _, kind := range []model.Kind{model.KindExpense, model.KindIncome} {
		names, err := reg.Effective(context.Background(), 1, kind)
		if err != nil {
			t.Fatalf("Effective(%s): %v", kind, err)
		}
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		for _, b := range Builtin(kind) {
			if _, ok := set[b]; !ok {
				t.Errorf("builtin %q missing for %s", b, kind)
			}
		}
	}
}

func TestEffectiveSortedAndDeduplicated(t *testing.T) {
	// "Еда" совпадает со стандартной категорией и не должна задвоиться.
	reg := NewRegistry(&fakeLister{names: map[model.Kind][]string{
		model.KindExpense: {"Кофе", "Еда", "Аптека"},
	}})

	names, err := reg.Effective(context.Background(), 1, model.KindExpense)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}

	if !sort.StringsAreSorted(names) {
		t.Errorf("names not sorted: %v", names)
	}
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	if seen["Еда"] != 1 {
		t.Errorf("Еда seen %d times, want 1", seen["Еда"])
	}
	if seen["Кофе"] != 1 || seen["Аптека"] != 1 {
		t.Errorf("user categories missing: %v", names)
	}
	if len(names) != len(Builtin(model.KindExpense))+2 {
		t.Errorf("len = %d, want %d", len(names), len(Builtin(model.KindExpense))+2)
	}
}

func TestEffectivePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	reg := NewRegistry(&fakeLister{err: wantErr})

	if _, err := reg.Effective(context.Background(), 1, model.KindExpense); !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestBuiltinReturnsCopy(t *testing.T) {
	first := Builtin(model.KindExpense)
	first[0] = "испорчено"
	second := Builtin(model.KindExpense)
	if second[0] == "испорчено" {
		t.Error("Builtin must return a copy")
	}
	if Builtin(model.Kind("loan")) != nil {
		t.Error("unknown kind must return nil")
	}
}
