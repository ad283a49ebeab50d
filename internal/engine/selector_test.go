package engine

import (
	"reflect"
	"testing"

	"github.com/escolanoar/vocacional/internal/models"
)

func TestPassQIDsIdempotent(t *testing.T) {
	bank := likertBank([]string{"tecnico", "pessoas", "gestao"}, 6)
	a := newAssessment(bank, 11, 3)
	cfg := DefaultConfig()

	first, created := PassQIDs(bank, a, 1, cfg)
	if !created {
		t.Fatal("first call should create the stage-1 selection")
	}
	second, created := PassQIDs(bank, a, 1, cfg)
	if created {
		t.Error("second call should reuse the stored selection")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("PassQIDs not idempotent: %v vs %v", first, second)
	}
	if len(first) != 6 {
		t.Errorf("stage 1 size = %d, want 6 (2 per dimension)", len(first))
	}

	// A fresh copy of the same assessment selects the same ids.
	b := newAssessment(bank, 11, 3)
	third, _ := PassQIDs(bank, b, 1, cfg)
	if !reflect.DeepEqual(first, third) {
		t.Errorf("selection not reproducible: %v vs %v", first, third)
	}
}

func TestPassQIDsStableWhenBankGrows(t *testing.T) {
	bank := likertBank([]string{"tecnico", "pessoas"}, 3)
	a := newAssessment(bank, 5, 5)
	first, _ := PassQIDs(bank, a, 1, DefaultConfig())

	bigger := likertBank([]string{"tecnico", "pessoas", "gestao"}, 8)
	again, created := PassQIDs(bigger, a, 1, DefaultConfig())
	if created || !reflect.DeepEqual(first, again) {
		t.Errorf("stored selection changed after bank update: %v vs %v", first, again)
	}
}

func TestPassQIDsNoCrossStageRepeats(t *testing.T) {
	bank := likertBank([]string{"tecnico", "pessoas", "gestao", "analise"}, 5)
	a := newAssessment(bank, 21, 9)
	cfg := DefaultConfig()

	p1, _ := PassQIDs(bank, a, 1, cfg)
	answers := answerAll(bank, p1, func(slug string) int {
		if slug == "pessoas" {
			return 5
		}
		return 3
	})
	stats := ComputePassStats(bank, answers, p1, 1, cfg)
	a.Refinement.SetPass(stats)

	p2, _ := PassQIDs(bank, a, 2, cfg)
	if len(p2) == 0 {
		t.Fatal("stage 2 selected nothing")
	}
	in1 := make(map[int64]bool)
	for _, id := range p1 {
		in1[id] = true
	}
	for _, id := range p2 {
		if in1[id] {
			t.Errorf("question %d reused in stage 2", id)
		}
	}
}

func TestSelectBalancedPerDim(t *testing.T) {
	bank := likertBank([]string{"a", "b", "c"}, 4)
	a := newAssessment(bank, 1, 1)

	tests := []struct {
		perDim int
		want   int
	}{
		{1, 3},
		{2, 6},
		{4, 12},
		{10, 12},
		{0, 3},
		{-5, 3},
	}
	for _, tt := range tests {
		got := SelectBalanced(bank, a, nil, tt.perDim)
		if len(got) != tt.want {
			t.Errorf("SelectBalanced(perDim=%d) returned %d ids, want %d", tt.perDim, len(got), tt.want)
		}
	}
}

func TestSelectBalancedFollowsQuestionOrder(t *testing.T) {
	bank := likertBank([]string{"a"}, 4)
	a := &models.Assessment{ID: 1, UserID: 1, QuestionOrder: []int64{104, 102, 101, 103}}

	got := SelectBalanced(bank, a, nil, 2)
	set := map[int64]bool{}
	for _, id := range got {
		set[id] = true
	}
	if len(got) != 2 || !set[104] || !set[102] {
		t.Errorf("SelectBalanced = %v, want the first two ids of the stored order {104, 102}", got)
	}
}

func TestSelectBalancedSkipsUsed(t *testing.T) {
	bank := likertBank([]string{"a"}, 3)
	a := newAssessment(bank, 2, 2)
	used := map[int64]bool{101: true, 102: true}

	got := SelectBalanced(bank, a, used, 2)
	if !reflect.DeepEqual(got, []int64{103}) {
		t.Errorf("SelectBalanced = %v, want [103]", got)
	}
}

func TestSelectFocused(t *testing.T) {
	bank := likertBank([]string{"a", "b", "c", "d"}, 5)
	a := newAssessment(bank, 3, 4)

	got := SelectFocused(bank, a, nil, []string{"c", "a", "zz"}, 5, 3)
	if len(got) != 6 {
		t.Fatalf("SelectFocused returned %d ids, want 6", len(got))
	}
	for _, id := range got {
		slug := bank.DimensionOf(bank.Question(id)).Slug
		if slug != "c" && slug != "a" {
			t.Errorf("question %d from dimension %q outside the focus set", id, slug)
		}
	}
}

func TestSelectFocusedFallback(t *testing.T) {
	bank := likertBank([]string{"a", "b", "c", "d"}, 5)
	a := newAssessment(bank, 3, 4)

	got := SelectFocused(bank, a, nil, nil, 2, 3)
	if len(got) != 6 {
		t.Fatalf("fallback returned %d ids, want 6", len(got))
	}
	for _, id := range got {
		slug := bank.DimensionOf(bank.Question(id)).Slug
		if slug != "a" && slug != "b" {
			t.Errorf("fallback picked dimension %q, want the first two in canonical order", slug)
		}
	}
}

func TestPassQIDsEmptyBank(t *testing.T) {
	bank := NewBank(nil, nil)
	a := &models.Assessment{ID: 1, UserID: 1}

	ids, created := PassQIDs(bank, a, 1, DefaultConfig())
	if len(ids) != 0 || !created {
		t.Errorf("PassQIDs on empty bank = (%v, %v), want ([], true)", ids, created)
	}
	if _, ok := a.Refinement.PassQIDs[1]; !ok {
		t.Error("empty selection should still be recorded")
	}
}
