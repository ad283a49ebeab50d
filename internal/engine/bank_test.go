package engine

import (
	"reflect"
	"testing"

	"github.com/escolanoar/vocacional/internal/models"
)

func TestNewBankFiltersAndOrders(t *testing.T) {
	dims := []models.Dimension{
		{ID: 7, Slug: "gestao", Name: "Gestão"},
		{ID: 2, Slug: "tecnico", Name: "Técnico", Weight: 2},
		{ID: 9, Slug: "vazia", Name: "Sem perguntas"},
	}
	qs := []models.Question{
		{ID: 30, DimensionID: 7, Position: 2, Type: models.QuestionLikert, Active: true},
		{ID: 31, DimensionID: 7, Position: 1, Type: models.QuestionLikert, Active: true},
		{ID: 10, DimensionID: 2, Position: 1, Type: models.QuestionLikert, Active: true},
		{ID: 11, DimensionID: 2, Position: 1, Type: models.QuestionLikert, Active: false},
		{ID: 12, DimensionID: 99, Position: 1, Type: models.QuestionLikert, Active: true},
	}

	bank := NewBank(dims, qs)

	if got, want := bank.QuestionIDs(), []int64{10, 31, 30}; !reflect.DeepEqual(got, want) {
		t.Errorf("QuestionIDs() = %v, want %v", got, want)
	}
	if bank.Len() != 3 {
		t.Errorf("Len() = %d, want 3", bank.Len())
	}
	if n := len(bank.Dimensions()); n != 2 {
		t.Errorf("len(Dimensions()) = %d, want 2 (dimension without questions dropped)", n)
	}
	if bank.Question(11) != nil {
		t.Error("inactive question should not be in the bank")
	}
	if d := bank.DimensionBySlug("gestao"); d == nil || d.Weight != 1 {
		t.Errorf("gestao weight should default to 1, got %+v", d)
	}
	if d := bank.DimensionBySlug("tecnico"); d == nil || d.Weight != 2 {
		t.Errorf("tecnico weight = %+v, want 2", d)
	}
}

func TestMaxScore(t *testing.T) {
	dims := []models.Dimension{{ID: 1, Slug: "artes", Weight: 3}}
	qs := []models.Question{
		{ID: 1, DimensionID: 1, Type: models.QuestionLikert, Active: true},
		{ID: 2, DimensionID: 1, Type: models.QuestionSingle, Active: true, Options: []models.Option{
			{ID: 1, Value: 2}, {ID: 2, Value: 6}, {ID: 3, Value: 4},
		}},
		{ID: 3, DimensionID: 1, Type: models.QuestionSingle, Active: true},
	}
	bank := NewBank(dims, qs)

	tests := []struct {
		id   int64
		want int
	}{
		{1, 15},
		{2, 18},
		{3, 0},
	}
	for _, tt := range tests {
		if got := bank.MaxScore(bank.Question(tt.id)); got != tt.want {
			t.Errorf("MaxScore(q%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestInitialOrderDeterministic(t *testing.T) {
	bank := likertBank([]string{"a", "b", "c", "d"}, 5)

	first := InitialOrder(bank, 42, 7)
	second := InitialOrder(bank, 42, 7)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("InitialOrder not deterministic: %v vs %v", first, second)
	}
	if len(first) != bank.Len() {
		t.Fatalf("InitialOrder length = %d, want %d", len(first), bank.Len())
	}

	seen := make(map[int64]bool)
	for _, id := range first {
		if seen[id] || bank.Question(id) == nil {
			t.Fatalf("InitialOrder is not a permutation of the bank: %v", first)
		}
		seen[id] = true
	}
}
