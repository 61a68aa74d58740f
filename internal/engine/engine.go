// Package engine classifies a loaded page into a structural family (CMS or
// exchanger engine) by scoring it against a weighted indicator table.
package engine

// Type is a page's structural family.
type Type string

const (
	TypeSPAExchanger Type = "spa_exchanger"
	TypeMultiPage    Type = "multi_page"
	TypeProtected    Type = "protected"
	TypeWordPress    Type = "wordpress"
	TypeCustom       Type = "custom"
	TypeUnknown      Type = "unknown"
)

// categoryOrder fixes the iteration order used to pick the winning category.
// Equal top scores resolve to the earlier entry. Downstream automation flows
// key off this, so the order is pinned by a regression test; do not reorder.
var categoryOrder = []Type{
	TypeSPAExchanger,
	TypeMultiPage,
	TypeProtected,
	TypeWordPress,
	TypeCustom,
}

// Signature is the classifier's best guess for one page at call time. It is
// immutable once returned and must be recomputed after a navigation.
type Signature struct {
	Type       Type     `json:"type"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators,omitempty"`
}

// classifyThreshold is the minimum winning score for a non-unknown result.
const classifyThreshold = 30
