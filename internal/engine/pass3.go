package engine

// ── Situational / Context Catalog ──────────────────────

// Trait tags used by the stage-3 items.
const (
	TagTecnico      = "tecnico"
	TagAnalise      = "analise"
	TagCriatividade = "criatividade"
	TagPessoas      = "pessoas"
	TagGestao       = "gestao"
)

type ContextOption struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Tags  []string `json:"tags"`
}

type ContextItem struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Text    string          `json:"text"`
	Options []ContextOption `json:"options"`
}

// Option returns the option with the given key, or nil.
func (it ContextItem) Option(key string) *ContextOption {
	for i := range it.Options {
		if it.Options[i].Key == key {
			return &it.Options[i]
		}
	}
	return nil
}

// SJTItems are the situational-judgment items of stage 3.
var SJTItems = []ContextItem{
	{
		ID:    "sjt1",
		Title: "Conflito de prioridades",
		Text:  "Num projeto em grupo, surge um conflito entre prazo e qualidade. O que você faz primeiro?",
		Options: []ContextOption{
			{Key: "a", Label: "Reorganizo o plano e distribuo tarefas, garantindo entrega no prazo.", Tags: []string{TagGestao}},
			{Key: "b", Label: "Reviso os requisitos e defino um padrão mínimo de qualidade antes de seguir.", Tags: []string{TagAnalise}},
			{Key: "c", Label: "Prototipo rápido e testo com usuários para decidir o melhor caminho.", Tags: []string{TagCriatividade, TagPessoas}},
			{Key: "d", Label: "Aprofundo o problema técnico e proponho uma solução mais robusta.", Tags: []string{TagTecnico}},
		},
	},
	{
		ID:    "sjt2",
		Title: "Aprender algo novo",
		Text:  "Você precisa aprender uma habilidade nova rapidamente. Qual estratégia combina mais com você?",
		Options: []ContextOption{
			{Key: "a", Label: "Vou direto para um projeto prático e aprendo fazendo.", Tags: []string{TagTecnico, TagCriatividade}},
			{Key: "b", Label: "Sigo um plano estruturado, com metas e checklist.", Tags: []string{TagGestao}},
			{Key: "c", Label: "Procuro alguém para orientar/mentorar e pratico com feedback.", Tags: []string{TagPessoas}},
			{Key: "d", Label: "Leio, pesquiso, comparo fontes e só depois aplico.", Tags: []string{TagAnalise}},
		},
	},
	{
		ID:    "sjt3",
		Title: "Trabalho ideal",
		Text:  "Qual descrição de trabalho te dá mais energia?",
		Options: []ContextOption{
			{Key: "a", Label: "Resolver problemas complexos com lógica e precisão.", Tags: []string{TagAnalise, TagTecnico}},
			{Key: "b", Label: "Criar coisas novas e comunicar ideias.", Tags: []string{TagCriatividade}},
			{Key: "c", Label: "Cuidar de pessoas, ensinar ou orientar.", Tags: []string{TagPessoas}},
			{Key: "d", Label: "Organizar processos e liderar para resultados.", Tags: []string{TagGestao}},
		},
	},
}

// ContextItems are the binary-choice context items of stage 3.
var ContextItems = []ContextItem{
	{
		ID:    "ctx1",
		Title: "Ambiente",
		Text:  "Você prefere ambientes mais previsíveis ou mais dinâmicos?",
		Options: []ContextOption{
			{Key: "a", Label: "Previsíveis (rotina, processos claros)", Tags: []string{TagGestao, TagAnalise}},
			{Key: "b", Label: "Dinâmicos (mudanças, improviso, variedade)", Tags: []string{TagCriatividade, TagPessoas}},
		},
	},
	{
		ID:    "ctx2",
		Title: "Foco principal",
		Text:  "No dia a dia, você tende a se motivar mais por…",
		Options: []ContextOption{
			{Key: "a", Label: "Dados, lógica e solução técnica", Tags: []string{TagTecnico, TagAnalise}},
			{Key: "b", Label: "Pessoas, impacto e comunicação", Tags: []string{TagPessoas, TagCriatividade}},
		},
	},
}

// TagToDimensions maps each trait tag to the dimension slugs it favours.
var TagToDimensions = map[string][]string{
	TagTecnico:      {"tecnico", "exatas", "dev", "dev_ia", "engenharia"},
	TagAnalise:      {"analise", "pesquisa", "dados", "direito", "economia"},
	TagCriatividade: {"criatividade", "design", "artes", "comunicacao"},
	TagPessoas:      {"pessoas", "saude", "educacao", "social"},
	TagGestao:       {"gestao", "negocios", "empreendedorismo"},
}

// ── Adjustment ─────────────────────────────────────────

// ApplyPass3Adjustments returns a copy of means bumped by the tags of the
// chosen stage-3 options. Only dimensions already present in means move.
// Unknown item ids and option keys are ignored.
func ApplyPass3Adjustments(means map[string]float64, sjt, ctx map[string]string, cfg Config) map[string]float64 {
	cfg = cfg.Normalize()

	out := make(map[string]float64, len(means))
	for k, v := range means {
		out[k] = v
	}

	bumpAll(out, SJTItems, sjt, cfg.SJTDelta)
	bumpAll(out, ContextItems, ctx, cfg.ContextDelta)
	return out
}

// ProbsFromMeans re-derives the distribution for adjusted means.
func ProbsFromMeans(means map[string]float64, cfg Config) map[string]float64 {
	return Softmax(means, cfg.Normalize().SoftmaxTau)
}

func bumpAll(means map[string]float64, catalog []ContextItem, answers map[string]string, delta float64) {
	for _, item := range catalog {
		choice, ok := answers[item.ID]
		if !ok {
			continue
		}
		opt := item.Option(choice)
		if opt == nil {
			continue
		}
		for _, tag := range opt.Tags {
			for _, slug := range TagToDimensions[tag] {
				if _, ok := means[slug]; ok {
					means[slug] += delta
				}
			}
		}
	}
}
