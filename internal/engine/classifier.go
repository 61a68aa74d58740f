package engine

import (
	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/page"
)

// Classifier scores pages against an indicator battery. The zero value is not
// usable; construct with New.
type Classifier struct {
	indicators []Indicator
}

// New creates a Classifier with the built-in indicator battery.
func New() *Classifier {
	return &Classifier{indicators: defaultIndicators}
}

// NewWithIndicators creates a Classifier with a custom battery, e.g. one
// extended via LoadIndicators.
func NewWithIndicators(indicators []Indicator) *Classifier {
	return &Classifier{indicators: indicators}
}

// Classify evaluates every indicator against the document and returns the
// winning category's signature. Pure function of page structure at call time.
//
// The winner is the category with the maximum accumulated score, iterated in
// categoryOrder with a strict comparison, so an earlier category keeps the
// win on a tie. A winning score below the threshold yields TypeUnknown while
// retaining the score-derived confidence.
func (c *Classifier) Classify(doc page.Document) Signature {
	scores := map[Type]int{}
	matchedBy := map[Type][]string{}

	for _, ind := range c.indicators {
		if ind.evaluate(doc) {
			scores[ind.Category] += ind.Weight
			matchedBy[ind.Category] = append(matchedBy[ind.Category], ind.Name)
		}
	}

	winner := TypeUnknown
	best := 0
	for _, cat := range categoryOrder {
		if scores[cat] > best {
			best = scores[cat]
			winner = cat
		}
	}

	confidence := float64(best) / 100
	if confidence > 1 {
		confidence = 1
	}

	sig := Signature{
		Type:       winner,
		Confidence: confidence,
		Indicators: matchedBy[winner],
	}
	if best < classifyThreshold {
		sig.Type = TypeUnknown
	}

	zap.L().Debug("engine: classified page",
		zap.String("url", doc.URL()),
		zap.String("type", string(sig.Type)),
		zap.Float64("confidence", sig.Confidence),
		zap.Strings("indicators", sig.Indicators),
	)
	return sig
}
