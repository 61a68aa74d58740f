package engine

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/probelab/fathom/internal/page"
)

// CheckKind selects how an indicator's pattern is evaluated.
type CheckKind string

const (
	// CheckSelector passes when the selector matches at least one element.
	CheckSelector CheckKind = "selector"
	// CheckScriptSrc passes when any script src contains the pattern.
	CheckScriptSrc CheckKind = "script_src"
	// CheckFieldName passes when any form control's name or id contains the
	// pattern.
	CheckFieldName CheckKind = "field_name"
	// CheckBodyText passes when the serialized document contains the pattern,
	// markup included, so link hrefs and meta tags count.
	CheckBodyText CheckKind = "body_text"
)

// Indicator is one weighted structural check contributing to a single
// category accumulator.
type Indicator struct {
	Name     string    `yaml:"name"`
	Category Type      `yaml:"category"`
	Weight   int       `yaml:"weight"`
	Kind     CheckKind `yaml:"kind"`
	Pattern  string    `yaml:"pattern"`
}

// defaultIndicators is the built-in rule battery. Weights are calibrated so
// that a single weak tell stays below the unknown threshold while any two
// tells for the same category clear it.
var defaultIndicators = []Indicator{
	// Single-page exchanger apps.
	{Name: "spa-root-mount", Category: TypeSPAExchanger, Weight: 30, Kind: CheckSelector, Pattern: "#app, #root, [data-reactroot], [data-v-app]"},
	{Name: "spa-bundle-script", Category: TypeSPAExchanger, Weight: 20, Kind: CheckScriptSrc, Pattern: "chunk"},
	{Name: "spa-exchange-fields", Category: TypeSPAExchanger, Weight: 25, Kind: CheckFieldName, Pattern: "amount"},

	// Classic multi-page exchangers.
	{Name: "mp-form-action", Category: TypeMultiPage, Weight: 40, Kind: CheckSelector, Pattern: "form[action][method]"},
	{Name: "mp-step-markup", Category: TypeMultiPage, Weight: 20, Kind: CheckSelector, Pattern: ".step, .steps, [class*=wizard], .pagination"},

	// Protection challenge interstitials.
	{Name: "prot-challenge-script", Category: TypeProtected, Weight: 50, Kind: CheckScriptSrc, Pattern: "cdn-cgi/challenge"},
	{Name: "prot-captcha-markup", Category: TypeProtected, Weight: 20, Kind: CheckSelector, Pattern: ".g-recaptcha, .h-captcha, #challenge-form, [class*=captcha]"},

	// WordPress-built exchangers.
	{Name: "wp-content", Category: TypeWordPress, Weight: 40, Kind: CheckScriptSrc, Pattern: "wp-content"},
	{Name: "wp-json-link", Category: TypeWordPress, Weight: 20, Kind: CheckBodyText, Pattern: "wp-json"},

	// Hand-rolled sites: weak generic tells only.
	{Name: "custom-inline-calc", Category: TypeCustom, Weight: 20, Kind: CheckBodyText, Pattern: "calculator"},
	{Name: "custom-exchange-form", Category: TypeCustom, Weight: 20, Kind: CheckFieldName, Pattern: "sum"},
}

// LoadIndicators reads extra indicators from a yaml file and appends them to
// the built-in battery. Categories outside the known set are rejected.
func LoadIndicators(path string) ([]Indicator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read indicators file %s", path)
	}
	var extra []Indicator
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return nil, eris.Wrapf(err, "engine: parse indicators file %s", path)
	}
	known := map[Type]bool{}
	for _, c := range categoryOrder {
		known[c] = true
	}
	for _, ind := range extra {
		if !known[ind.Category] {
			return nil, eris.Errorf("engine: unknown category %q in %s", ind.Category, path)
		}
	}
	return append(append([]Indicator{}, defaultIndicators...), extra...), nil
}

// evaluate runs a single check against the document.
func (ind Indicator) evaluate(doc page.Document) bool {
	switch ind.Kind {
	case CheckSelector:
		return doc.Exists(ind.Pattern)
	case CheckScriptSrc:
		for _, el := range doc.Find("script[src]") {
			if strings.Contains(strings.ToLower(el.Attr("src")), strings.ToLower(ind.Pattern)) {
				return true
			}
		}
		return false
	case CheckFieldName:
		needle := strings.ToLower(ind.Pattern)
		for _, el := range doc.Find("input, select, textarea") {
			if strings.Contains(strings.ToLower(el.Name), needle) ||
				strings.Contains(strings.ToLower(el.ID), needle) {
				return true
			}
		}
		return false
	case CheckBodyText:
		return strings.Contains(strings.ToLower(doc.HTML()), strings.ToLower(ind.Pattern))
	}
	return false
}
