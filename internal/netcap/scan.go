package netcap

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/probelab/fathom/internal/cryptoaddr"
	"github.com/probelab/fathom/internal/page"
)

// maxScanDepth bounds the recursive JSON search.
const maxScanDepth = 10

// staticExtensions are skipped outright regardless of URL keywords.
var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp4": true, ".webm": true,
}

// interestingKeywords mark a URL as worth scanning even without a matching
// content type.
var interestingKeywords = []string{
	"api", "exchange", "order", "wallet", "deposit", "payment",
	"invoice", "transaction", "withdraw", "rate", "calc",
}

var addressKeyFragments = []string{
	"address", "wallet", "deposit", "account", "payin", "destination",
}

var networkKeyFragments = []string{"network", "chain", "blockchain", "coin"}

var memoKeyFragments = []string{"memo", "tag", "extra_id", "extraid"}

var minAmountKeyFragments = []string{
	"min_amount", "minamount", "min_sum", "minsum", "minimum", "min_deposit", "minimal",
}

// scan filters one response and mines headers and body.
func (i *Interceptor) scan(resp page.Response) {
	if isStaticAsset(resp.URL) {
		return
	}

	ct := strings.ToLower(resp.ContentType)
	textual := strings.Contains(ct, "json") || strings.Contains(ct, "text/plain")
	if !urlIsInteresting(resp.URL) && !textual {
		return
	}

	// Headers can carry deposit addresses on some exchanger APIs.
	for _, value := range resp.Headers {
		if addr, _, ok := cryptoaddr.Find(value); ok {
			i.recordAddress(Address{Address: addr, Source: "api-header", URL: resp.URL})
		}
	}

	body := strings.TrimSpace(resp.Body)
	if body == "" {
		return
	}

	looksJSON := strings.Contains(ct, "json") ||
		strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")
	if looksJSON && gjson.Valid(body) {
		i.scanJSON(resp.URL, gjson.Parse(body), 0)
		return
	}

	// Parse failure or plain text degrades to a raw pattern scan.
	i.scanText(resp.URL, body)
}

// scanJSON recursively searches the parsed tree, depth-bounded. String leaves
// are recorded when their key looks address-like and their value matches a
// pattern, with network and memo context pulled from sibling keys. Numeric
// leaves under a minimum-amount key become amount hints.
func (i *Interceptor) scanJSON(respURL string, node gjson.Result, depth int) {
	if depth > maxScanDepth {
		return
	}

	if node.IsArray() {
		for _, v := range node.Array() {
			i.scanJSON(respURL, v, depth+1)
		}
		return
	}
	if !node.IsObject() {
		return
	}

	obj := node.Map()
	for key, val := range obj {
		lk := strings.ToLower(key)
		switch {
		case val.IsObject() || val.IsArray():
			i.scanJSON(respURL, val, depth+1)
		case val.Type == gjson.String && keyMatches(lk, addressKeyFragments) && cryptoaddr.Matches(val.Str):
			i.recordAddress(Address{
				Address: strings.TrimSpace(val.Str),
				Network: siblingValue(obj, networkKeyFragments),
				Memo:    siblingValue(obj, memoKeyFragments),
				Source:  "api-json",
				URL:     respURL,
			})
		case keyMatches(lk, minAmountKeyFragments):
			if amt, ok := numericValue(val); ok {
				i.recordMinAmount(respURL, amt)
			}
		}
	}
}

// scanText runs the raw address pattern scan over a non-JSON body.
func (i *Interceptor) scanText(respURL, body string) {
	for _, addr := range cryptoaddr.FindAll(body) {
		i.recordAddress(Address{Address: addr, Source: "api-text", URL: respURL})
	}
}

func isStaticAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return staticExtensions[strings.ToLower(path.Ext(u.Path))]
}

func urlIsInteresting(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range interestingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func keyMatches(key string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

// siblingValue returns the first sibling string whose key matches one of the
// fragments, e.g. the "network" field next to a "deposit_address" leaf.
func siblingValue(obj map[string]gjson.Result, fragments []string) string {
	for key, val := range obj {
		if val.Type != gjson.String && val.Type != gjson.Number {
			continue
		}
		if keyMatches(strings.ToLower(key), fragments) {
			return val.String()
		}
	}
	return ""
}

func numericValue(val gjson.Result) (float64, bool) {
	switch val.Type {
	case gjson.Number:
		return val.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(val.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
