package narrative

import (
	"fmt"
	"strings"

	"github.com/escolanoar/vocacional/internal/models"
)

// SystemPrompt frames the model as a career counsellor writing for a student.
func SystemPrompt() string {
	return `Você é um orientador vocacional escrevendo para um estudante do ensino médio.
Escreva um parágrafo curto (no máximo 80 palavras), em português do Brasil, em tom
acolhedor e direto. Comente apenas as áreas fornecidas, sem inventar percentuais,
sem prometer carreiras e sem usar listas ou markdown.`
}

// BuildUserPrompt lists the top results the paragraph must discuss.
func BuildUserPrompt(firstName string, top []models.Result) string {
	var b strings.Builder
	if firstName != "" {
		fmt.Fprintf(&b, "Nome do estudante: %s\n", firstName)
	}
	b.WriteString("Áreas com maior afinidade:\n")
	for _, r := range top {
		fmt.Fprintf(&b, "- %s: %.2f%% (nível: %s)\n", displayName(r), r.Percentage, r.Level)
	}
	b.WriteString("\nEscreva o parágrafo de devolutiva.")
	return b.String()
}

func displayName(r models.Result) string {
	if r.DimensionName != "" {
		return r.DimensionName
	}
	if r.DimensionSlug != "" {
		return r.DimensionSlug
	}
	return "Geral"
}
