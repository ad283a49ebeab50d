package narrative

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/escolanoar/vocacional/internal/models"
)

const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
)

// Writer renders the result summary. The top-3 listing is always produced
// from the stored results; an LLM, when configured, only adds a closing
// paragraph.
type Writer struct {
	llm LLMClient
}

// NewWriter returns a writer; llm may be nil.
func NewWriter(llm LLMClient) *Writer {
	return &Writer{llm: llm}
}

func (w *Writer) Summarize(ctx context.Context, firstName string, top []models.Result) (string, string, error) {
	base := Template(firstName, top)
	if w.llm == nil || len(top) == 0 {
		return base, SourceTemplate, nil
	}

	resp, err := w.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(firstName, top))
	if err != nil {
		log.Printf("WARN: [narrative] LLM summary failed, using template: %v", err)
		return base, SourceTemplate, nil
	}
	extra := strings.TrimSpace(resp.Content)
	if extra == "" {
		return base, SourceTemplate, nil
	}
	if check := CheckParagraph(extra, top); !check.Acceptable() {
		log.Printf("WARN: [narrative] LLM paragraph rejected (quality %.2f, markup=%v, numbers=%v)",
			check.Score(), !check.NoMarkup, check.NumbersMatch)
		return base, SourceTemplate, nil
	}
	return base + "\n\n" + extra, SourceLLM, nil
}

// Template lists up to three results with their percentage and level.
func Template(firstName string, top []models.Result) string {
	var b strings.Builder
	if firstName != "" {
		fmt.Fprintf(&b, "Olá, %s!\n\n", firstName)
	}
	b.WriteString("Seu resultado do Teste Vocacional:\n\n")
	if len(top) == 0 {
		b.WriteString("Nenhuma área pôde ser pontuada.\n")
	}
	for i, r := range top {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "- %s: %.2f%% (nível: %s)\n", displayName(r), r.Percentage, r.Level)
	}
	b.WriteString("\nObrigado por participar!")
	return b.String()
}
