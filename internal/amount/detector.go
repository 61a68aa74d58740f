// Package amount infers a target's minimum transaction amount through a
// cascade of probes: network interception, HTML attributes, live validation
// probing, and a binary-doubling ladder, with a time-boxed result cache.
package amount

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/page"
)

// Method identifies which probe tier produced a result.
type Method string

const (
	MethodAPI        Method = "api"
	MethodHTMLAttr   Method = "html-attr"
	MethodValidation Method = "validation"
	MethodLadder     Method = "ladder"
	MethodFallback   Method = "fallback"
)

// Result is the outcome of one detection cascade. Non-fallback amounts carry
// the +1% safety margin.
type Result struct {
	Amount     float64 `json:"amount"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

type cacheKey struct {
	domain string
	from   string
	to     string
}

type cacheEntry struct {
	result Result
	at     time.Time
}

// Detector owns the probe cascade and its cache. The caller constructs one
// per harvesting context and passes it around; there is no package-level
// state.
type Detector struct {
	stream page.ResponseStream // nil disables the API tier

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
	now   func() time.Time

	APIWindow           time.Duration
	SettleDelay         time.Duration
	LadderMaxIterations int
	CacheTTL            time.Duration
}

// NewDetector creates a Detector with production defaults. The stream may be
// nil when no response feed is available (e.g. static analysis).
func NewDetector(stream page.ResponseStream) *Detector {
	return &Detector{
		stream:              stream,
		cache:               map[cacheKey]cacheEntry{},
		now:                 time.Now,
		APIWindow:           5 * time.Second,
		SettleDelay:         500 * time.Millisecond,
		LadderMaxIterations: 12,
		CacheTTL:            24 * time.Hour,
	}
}

// WithNow fixes the clock; used by tests.
func (d *Detector) WithNow(now func() time.Time) *Detector {
	d.now = now
	return d
}

// DetectMinimum runs the cascade for one (page, from, to) triple. A cached
// result younger than the TTL short-circuits every probe tier. Probe tiers
// are tried in fixed order and the first success wins; its amount is
// margin-adjusted before caching and returning. The fallback amount is
// returned unmodified and never cached.
func (d *Detector) DetectMinimum(ctx context.Context, p page.Page, from, to string, fallback float64) Result {
	key := cacheKey{domain: domainOf(p.URL()), from: strings.ToUpper(from), to: strings.ToUpper(to)}

	d.mu.Lock()
	if entry, ok := d.cache[key]; ok && d.now().Sub(entry.at) < d.CacheTTL {
		d.mu.Unlock()
		return entry.result
	}
	d.mu.Unlock()

	tiers := []struct {
		method     Method
		confidence float64
		probe      func(context.Context, page.Page, string) (float64, bool)
	}{
		{MethodAPI, 0.95, d.probeAPI},
		{MethodHTMLAttr, 0.7, d.probeHTMLAttr},
		{MethodValidation, 0.85, d.probeValidation},
		{MethodLadder, 0.6, d.probeLadder},
	}

	for _, tier := range tiers {
		raw, ok := tier.probe(ctx, p, key.from)
		if !ok {
			continue
		}
		result := Result{
			Amount:     ApplyMargin(raw),
			Method:     tier.method,
			Confidence: tier.confidence,
		}

		d.mu.Lock()
		d.cache[key] = cacheEntry{result: result, at: d.now()}
		d.mu.Unlock()

		zap.L().Debug("amount: minimum detected",
			zap.String("domain", key.domain),
			zap.String("method", string(tier.method)),
			zap.Float64("raw", raw),
			zap.Float64("amount", result.Amount),
		)
		return result
	}

	zap.L().Debug("amount: all probes empty, using fallback",
		zap.String("domain", key.domain),
		zap.Float64("fallback", fallback),
	)
	return Result{Amount: fallback, Method: MethodFallback, Confidence: 0.3}
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
