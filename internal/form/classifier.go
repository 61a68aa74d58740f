package form

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/page"
)

// Field is a candidate form element with its inferred role. Fields are only
// held for the duration of one fill operation.
type Field struct {
	Selector   string           `json:"selector"`
	Purpose    Purpose          `json:"purpose"`
	Confidence float64          `json:"confidence"`
	Element    page.ElementInfo `json:"element"`
}

// Analyze enumerates input, textarea, select and button elements, drops
// invisible and technical ones, and classifies the rest. The returned list is
// ranked by confidence descending.
//
// An element is considered when it has a rendered box, or is itself a
// submit-type control. Hidden technical fields (CSRF tokens and the like) are
// excluded outright.
func Analyze(doc page.Document) []Field {
	var fields []Field

	for _, el := range doc.Find("input, textarea, select, button") {
		if el.Type == "hidden" {
			continue
		}
		if !el.Visible && !isSubmitControl(el) {
			continue
		}

		purpose, confidence, drop := classify(el)
		if drop {
			continue
		}
		fields = append(fields, Field{
			Selector:   el.Selector,
			Purpose:    purpose,
			Confidence: confidence,
			Element:    el,
		})
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Confidence > fields[j].Confidence
	})

	zap.L().Debug("form: analyzed page",
		zap.String("url", doc.URL()),
		zap.Int("fields", len(fields)),
	)
	return fields
}

// classify runs the ordered rule list against one element. First match wins.
func classify(el page.ElementInfo) (Purpose, float64, bool) {
	hs := haystack(el.Name, el.ID, el.Placeholder, el.Label)

	for _, r := range rules {
		if !matchesAny(hs, r.fragments) {
			continue
		}
		if r.exclude {
			return PurposeUnknown, 0, true
		}
		return r.purpose, r.confidence, false
	}

	if isSubmitControl(el) {
		return PurposeSubmit, 0.75, false
	}
	return PurposeUnknown, 0, false
}

func matchesAny(hs string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(hs, f) {
			return true
		}
	}
	return false
}

func isSubmitControl(el page.ElementInfo) bool {
	return el.Type == "submit" || el.Tag == "button"
}
