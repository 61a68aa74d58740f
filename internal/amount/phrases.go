package amount

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// minimumPhrases are the validation-message tells, across the languages the
// harvested targets actually use. Matching is case-folded so declensions
// written in capitals still hit.
var minimumPhrases = []string{
	"minimum",
	"min amount",
	"min.",
	"at least",
	"no less than",
	"минимум",
	"минимальная",
	"минимальный",
	"не менее",
	"не меньше",
	"mínimo",
	"minimale",
	"minimo",
}

// phraseWindow is how far past a matched phrase the numeric value may sit.
const phraseWindow = 120

var numberPattern = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

// findMinimumPhrase scans visible error/hint text for a minimum-amount phrase
// and parses the number that follows it.
func findMinimumPhrase(text string) (float64, bool) {
	folded := cases.Fold().String(text)

	for _, phrase := range minimumPhrases {
		idx := strings.Index(folded, cases.Fold().String(phrase))
		if idx < 0 {
			continue
		}
		end := idx + phraseWindow
		if end > len(folded) {
			end = len(folded)
		}
		m := numberPattern.FindString(folded[idx:end])
		if m == "" {
			continue
		}
		if v, err := parseAmount(m); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}
