// Package cryptoaddr holds the address pattern set shared by the network
// interceptor and the extraction cascade, plus the prefix-based network
// inference used when no contextual network field is available.
package cryptoaddr

import (
	"regexp"
	"strings"
)

// Network identifies the chain an address belongs to.
type Network string

const (
	NetworkBTC   Network = "BTC"
	NetworkERC20 Network = "ERC20"
	NetworkTRC20 Network = "TRC20"
	NetworkLTC   Network = "LTC"
	NetworkXRP   Network = "XRP"
)

// Pattern is one address shape. Order matters: more distinctive prefixes are
// listed before the generic base58 shapes they would otherwise collide with.
type Pattern struct {
	Network Network
	Regexp  *regexp.Regexp
}

var patterns = []Pattern{
	{NetworkBTC, regexp.MustCompile(`\bbc1[a-z0-9]{25,87}\b`)},
	{NetworkERC20, regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)},
	{NetworkTRC20, regexp.MustCompile(`\bT[1-9A-HJ-NP-Za-km-z]{33}\b`)},
	{NetworkLTC, regexp.MustCompile(`\bltc1[a-z0-9]{25,87}\b`)},
	{NetworkLTC, regexp.MustCompile(`\b[LM][1-9A-HJ-NP-Za-km-z]{26,33}\b`)},
	{NetworkXRP, regexp.MustCompile(`\br[1-9A-HJ-NP-Za-km-z]{24,34}\b`)},
	{NetworkBTC, regexp.MustCompile(`\b[13][1-9A-HJ-NP-Za-km-z]{25,34}\b`)},
}

// memoPattern finds a short purely-numeric destination tag near an address
// mention, as required by ledgers like XRP and some exchanges' TRON setups.
var memoPattern = regexp.MustCompile(`(?i)(?:memo|tag|destination\s*tag)\D{0,10}(\d{1,12})\b`)

// Patterns returns the full pattern set in match-priority order.
func Patterns() []Pattern { return patterns }

// Find returns the first address in text along with its matched network.
func Find(text string) (addr string, network Network, ok bool) {
	best := -1
	for _, p := range patterns {
		loc := p.Regexp.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best = loc[0]
			addr = text[loc[0]:loc[1]]
			network = p.Network
			ok = true
		}
	}
	return addr, network, ok
}

// FindAll returns every distinct address in text, in order of appearance.
func FindAll(text string) []string {
	type hit struct {
		pos  int
		addr string
	}
	var hits []hit
	seen := map[string]bool{}
	for _, p := range patterns {
		for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
			a := text[loc[0]:loc[1]]
			if seen[a] {
				continue
			}
			seen[a] = true
			hits = append(hits, hit{pos: loc[0], addr: a})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.addr
	}
	return out
}

// Matches reports whether value is, in its entirety, a plausible address.
func Matches(value string) bool {
	value = strings.TrimSpace(value)
	for _, p := range patterns {
		if loc := p.Regexp.FindStringIndex(value); loc != nil && loc[0] == 0 && loc[1] == len(value) {
			return true
		}
	}
	return false
}

// InferNetwork guesses the chain from an address's literal prefix.
func InferNetwork(addr string) Network {
	switch {
	case strings.HasPrefix(addr, "bc1"), strings.HasPrefix(addr, "1"), strings.HasPrefix(addr, "3"):
		return NetworkBTC
	case strings.HasPrefix(addr, "T"):
		return NetworkTRC20
	case strings.HasPrefix(addr, "0x"):
		return NetworkERC20
	case strings.HasPrefix(addr, "ltc1"), strings.HasPrefix(addr, "L"), strings.HasPrefix(addr, "M"):
		return NetworkLTC
	case strings.HasPrefix(addr, "r"):
		return NetworkXRP
	}
	return ""
}

// FindMemo looks for a numeric memo/tag in the text surrounding an address.
func FindMemo(context string) string {
	m := memoPattern.FindStringSubmatch(context)
	if m == nil {
		return ""
	}
	return m[1]
}
