// Package extract locates the target deposit address on a page by cascading
// through the visible document, embedded sub-documents, and finally the
// network interceptor's best find. Each tier failing is a normal outcome; the
// caller only ever sees a result or "found nothing".
package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/cryptoaddr"
	"github.com/probelab/fathom/internal/netcap"
	"github.com/probelab/fathom/internal/page"
)

// Result is a located address with its provenance. Source is "dom", "iframe",
// or the interceptor's own source label.
type Result struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Memo    string `json:"memo,omitempty"`
	Source  string `json:"source"`
}

// Interceptor is the slice of netcap the cascade needs; *netcap.Interceptor
// satisfies it.
type Interceptor interface {
	BestAddress() (netcap.Address, bool)
}

// prioritySelectors are likely address containers, checked before falling
// back to the whole visible text body.
var prioritySelectors = []string{
	"[data-clipboard-text]",
	"[data-copy]",
	".address",
	".wallet-address",
	".deposit-address",
	"[class*=address]",
	"input[readonly]",
	"code",
}

// frameKeywords gate which sub-documents are worth scanning.
var frameKeywords = []string{"payment", "checkout", "wallet", "pay", "invoice", "deposit"}

// Address runs the cascade. The interceptor may be nil, in which case the
// network tier is skipped.
func Address(p page.Page, icpt Interceptor) (Result, bool) {
	if res, ok := scanDocument(p); ok {
		res.Source = "dom"
		return res, true
	}

	if res, ok := scanFrames(p); ok {
		res.Source = "iframe"
		return res, true
	}

	if icpt != nil {
		if addr, ok := icpt.BestAddress(); ok {
			zap.L().Debug("extract: using interceptor address",
				zap.String("address", addr.Address),
				zap.String("source", addr.Source),
			)
			return Result{
				Address: addr.Address,
				Network: addr.Network,
				Memo:    addr.Memo,
				Source:  addr.Source,
			}, true
		}
	}

	zap.L().Debug("extract: no address found", zap.String("url", p.URL()))
	return Result{}, false
}

// scanDocument checks priority containers first, then the whole text body.
func scanDocument(doc page.Document) (Result, bool) {
	for _, selector := range prioritySelectors {
		for _, el := range doc.Find(selector) {
			for _, candidate := range []string{
				el.Attr("data-clipboard-text"),
				el.Attr("data-copy"),
				el.Value,
			} {
				if cryptoaddr.Matches(candidate) {
					return withContext(strings.TrimSpace(candidate), "", doc.Text()), true
				}
			}
			if addr, network, ok := cryptoaddr.Find(elementText(el)); ok {
				return withContext(addr, string(network), doc.Text()), true
			}
		}
	}

	text := doc.Text()
	if addr, network, ok := cryptoaddr.Find(text); ok {
		return withContext(addr, string(network), text), true
	}
	return Result{}, false
}

// scanFrames repeats the document scan inside candidate sub-documents. URL
// relevance is checked first; content relevance only when the URL looks
// irrelevant. Stops at the first hit.
func scanFrames(p page.Page) (Result, bool) {
	for _, frame := range p.Frames() {
		if !containsKeyword(frame.URL(), frameKeywords) &&
			!containsKeyword(frame.Text(), frameKeywords) {
			continue
		}
		if res, ok := scanDocument(frame); ok {
			zap.L().Debug("extract: address found in sub-document",
				zap.String("frame_url", frame.URL()),
			)
			return res, true
		}
	}
	return Result{}, false
}

// withContext fills in the memo secondary pass and the prefix network
// inference when no network is known yet.
func withContext(addr, network, context string) Result {
	if network == "" {
		network = string(cryptoaddr.InferNetwork(addr))
	}
	return Result{
		Address: addr,
		Network: network,
		Memo:    cryptoaddr.FindMemo(context),
	}
}

func elementText(el page.ElementInfo) string {
	if el.Value != "" {
		return el.Value
	}
	return el.Text
}

func containsKeyword(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
