package narrative

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/escolanoar/vocacional/internal/models"
)

// MinParagraphScore is the lowest quality score an LLM paragraph may have
// and still be appended to the summary. Markup and unknown percentages are
// rejected regardless of the score, see Acceptable.
const MinParagraphScore = 0.75

var percentPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)

// ParagraphCheck holds the structural checks run on a generated paragraph.
type ParagraphCheck struct {
	LengthOK     bool
	WordLimitOK  bool
	NoMarkup     bool
	NumbersMatch bool
}

// CheckParagraph evaluates an LLM paragraph against the results it was
// asked to discuss.
func CheckParagraph(text string, top []models.Result) ParagraphCheck {
	n := len([]rune(text))
	words := len(strings.Fields(text))

	markup := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "- ") ||
			strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "|") {
			markup = true
			break
		}
	}
	if strings.Contains(text, "**") {
		markup = true
	}

	return ParagraphCheck{
		LengthOK:     n >= 40 && n <= 900,
		WordLimitOK:  words <= 120,
		NoMarkup:     !markup,
		NumbersMatch: percentagesKnown(text, top),
	}
}

// Score is the share of passed checks, 0.25 each.
func (c ParagraphCheck) Score() float64 {
	score := 0.0
	for _, ok := range []bool{c.LengthOK, c.WordLimitOK, c.NoMarkup, c.NumbersMatch} {
		if ok {
			score += 0.25
		}
	}
	return score
}

// Acceptable reports whether the paragraph may be shown. Length and word
// count only weigh into the score; markup and percentages that do not match
// the results always reject it.
func (c ParagraphCheck) Acceptable() bool {
	return c.NoMarkup && c.NumbersMatch && c.Score() >= MinParagraphScore
}

// percentagesKnown reports whether every percentage quoted in text is one of
// the result percentages, compared at one decimal.
func percentagesKnown(text string, top []models.Result) bool {
	known := make(map[string]bool, len(top))
	for _, r := range top {
		known[strconv.FormatFloat(r.Percentage, 'f', 1, 64)] = true
	}
	for _, m := range percentPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil || !known[strconv.FormatFloat(v, 'f', 1, 64)] {
			return false
		}
	}
	return true
}
