package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/escolanoar/vocacional/internal/models"
)

const maxCodeLen = 60

// File is the on-disk question bank: a map of dimension codes and groups of items.
type File struct {
	Dims   map[string]DimSpec `json:"dims" yaml:"dims" validate:"dive"`
	Groups []Group            `json:"groups" yaml:"groups" validate:"required,min=1,dive"`
}

type DimSpec struct {
	Name        string `json:"name" yaml:"name" validate:"max=120"`
	Description string `json:"description" yaml:"description"`
	Weight      int    `json:"weight" yaml:"weight" validate:"gte=0"`
}

type Group struct {
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items" validate:"dive"`
}

type Item struct {
	Code    string       `json:"code" yaml:"code" validate:"max=64"`
	Text    string       `json:"text" yaml:"text"`
	Dim     string       `json:"dim" yaml:"dim" validate:"required,max=80"`
	Type    string       `json:"type" yaml:"type" validate:"omitempty,oneof=likert escala single"`
	Invert  bool         `json:"invert" yaml:"invert"`
	Options []OptionSpec `json:"options" yaml:"options" validate:"required_if=Type single,dive"`
}

type OptionSpec struct {
	Label string `json:"label" yaml:"label" validate:"required,max=255"`
	Value int    `json:"value" yaml:"value"`
}

// Plan is a normalized file ready to be written.
type Plan struct {
	Dimensions []models.Dimension
	Questions  []PlannedQuestion
	Skipped    int
}

type PlannedQuestion struct {
	Code     string
	DimSlug  string
	Text     string
	Position int
	Type     models.QuestionType
	Invert   bool
	Options  []models.Option
}

// ParseFile reads a bank file, picking the decoder by extension.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

func Parse(data []byte, format string) (*File, error) {
	var f File
	switch format {
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return &f, nil
}

// Validate drops items without text, then checks the remaining structure.
func Validate(f *File) (int, error) {
	skipped := 0
	for gi := range f.Groups {
		kept := f.Groups[gi].Items[:0]
		for _, it := range f.Groups[gi].Items {
			if strings.TrimSpace(it.Text) == "" {
				skipped++
				continue
			}
			kept = append(kept, it)
		}
		f.Groups[gi].Items = kept
	}

	if err := validator.New().Struct(f); err != nil {
		return skipped, fmt.Errorf("invalid bank file: %w", err)
	}
	return skipped, nil
}

// Normalize turns a validated file into a Plan. Dimensions declared under
// dims come first in code order, followed by dimensions only referenced by items.
func Normalize(f *File) (*Plan, error) {
	skipped, err := Validate(f)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Skipped: skipped}
	seen := make(map[string]bool)

	codes := make([]string, 0, len(f.Dims))
	for code := range f.Dims {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		spec := f.Dims[code]
		slug := strings.ToLower(strings.TrimSpace(code))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			name = code
		}
		weight := spec.Weight
		if weight <= 0 {
			weight = 1
		}
		plan.Dimensions = append(plan.Dimensions, models.Dimension{
			Slug: slug, Name: name, Description: strings.TrimSpace(spec.Description), Weight: weight,
		})
	}

	positions := make(map[string]int)
	codesUsed := make(map[string]bool)
	for _, g := range f.Groups {
		for _, it := range g.Items {
			slug := strings.ToLower(strings.TrimSpace(it.Dim))
			if !seen[slug] {
				seen[slug] = true
				plan.Dimensions = append(plan.Dimensions, models.Dimension{
					Slug: slug, Name: strings.TrimSpace(it.Dim), Weight: 1,
				})
			}
			positions[slug]++

			text := strings.TrimSpace(it.Text)
			code := strings.TrimSpace(it.Code)
			if code == "" {
				code = Slugify(text)
			}
			if code == "" {
				return nil, fmt.Errorf("item %q in dimension %s: no letters or digits to derive a code from, set code explicitly", text, slug)
			}
			if codesUsed[code] {
				return nil, fmt.Errorf("duplicate question code %q", code)
			}
			codesUsed[code] = true

			q := PlannedQuestion{
				Code:     code,
				DimSlug:  slug,
				Text:     text,
				Position: positions[slug],
				Type:     questionType(it.Type),
				Invert:   it.Invert,
			}
			for i, o := range it.Options {
				q.Options = append(q.Options, models.Option{
					Label: strings.TrimSpace(o.Label), Value: o.Value, Position: i + 1,
				})
			}
			plan.Questions = append(plan.Questions, q)
		}
	}
	return plan, nil
}

func questionType(t string) models.QuestionType {
	if strings.EqualFold(t, string(models.QuestionSingle)) {
		return models.QuestionSingle
	}
	return models.QuestionLikert
}

// Slugify lowercases s, joins runs of letters and digits with single
// hyphens and cuts the result to the question code limit.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	out := b.String()
	if len(out) > maxCodeLen {
		out = strings.TrimRight(truncateRunes(out, maxCodeLen), "-")
	}
	return out
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
