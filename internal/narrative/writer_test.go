package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/escolanoar/vocacional/internal/models"
)

var sampleTop = []models.Result{
	{DimensionName: "Tecnologia", Percentage: 86.5, Level: "high"},
	{DimensionName: "Dados", Percentage: 64, Level: "medium"},
	{DimensionSlug: "artes", Percentage: 40, Level: "medium"},
	{DimensionName: "Saúde", Percentage: 12, Level: "low"},
}

func TestTemplate(t *testing.T) {
	got := Template("Ana", sampleTop)

	for _, want := range []string{
		"Olá, Ana!",
		"- Tecnologia: 86.50% (nível: high)",
		"- Dados: 64.00% (nível: medium)",
		"- artes: 40.00% (nível: medium)",
		"Obrigado por participar!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Template() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Saúde") {
		t.Error("Template() should list at most three results")
	}
}

func TestTemplateEmpty(t *testing.T) {
	got := Template("", nil)
	if strings.Contains(got, "Olá") || !strings.Contains(got, "Nenhuma área") {
		t.Errorf("Template(empty) = %q", got)
	}
}

func TestWriterWithoutLLM(t *testing.T) {
	text, source, err := NewWriter(nil).Summarize(context.Background(), "Ana", sampleTop[:1])
	if err != nil || source != SourceTemplate {
		t.Fatalf("Summarize() = (%q, %q, %v)", text, source, err)
	}
}

func TestWriterWithLLM(t *testing.T) {
	mock := NewMockClient()
	text, source, err := NewWriter(mock).Summarize(context.Background(), "Ana", sampleTop[:2])
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if source != SourceLLM || mock.Calls != 1 {
		t.Errorf("source = %q, calls = %d; want llm and 1", source, mock.Calls)
	}
	if !strings.HasSuffix(text, mock.Content) || !strings.Contains(text, "Tecnologia") {
		t.Errorf("Summarize() text = %q", text)
	}
}

func TestWriterFallsBackOnLLMError(t *testing.T) {
	mock := &MockClient{Err: errors.New("overloaded")}
	text, source, err := NewWriter(mock).Summarize(context.Background(), "", sampleTop[:1])
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if source != SourceTemplate || text != Template("", sampleTop[:1]) {
		t.Errorf("fallback = (%q, %q)", text, source)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt("Ana", sampleTop[:1])
	if !strings.Contains(got, "Nome do estudante: Ana") || !strings.Contains(got, "Tecnologia: 86.50%") {
		t.Errorf("BuildUserPrompt() = %q", got)
	}
}
