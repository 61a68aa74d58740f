package amount

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/netcap"
	"github.com/probelab/fathom/internal/page"
)

// amountSelectors are the known shapes of amount inputs, most specific first.
var amountSelectors = []string{
	"input[name*=amount]",
	"input[id*=amount]",
	"input[name*=sum]",
	"input[placeholder*=amount]",
	"#amount",
}

var submitSelectors = []string{
	"button[type=submit]",
	"input[type=submit]",
	"button",
}

// rangePattern parses "0.001 – 10 BTC" style placeholders.
var rangePattern = regexp.MustCompile(`([0-9]+(?:[.,][0-9]+)?)\s*[-–—]\s*[0-9]`)

// probeAPI opens a short capture window, nudges the amount input so the page
// recalculates its rate, and waits for a minimum-amount hint in any JSON
// response. The field's original value is restored regardless of outcome.
func (d *Detector) probeAPI(ctx context.Context, p page.Page, _ string) (amount float64, ok bool) {
	if d.stream == nil {
		return 0, false
	}
	selector, found := findAmountSelector(p)
	if !found {
		return 0, false
	}

	original, err := p.Value(selector)
	if err != nil {
		return 0, false
	}
	defer func() {
		if err := p.SetValue(selector, original); err != nil {
			zap.L().Warn("amount: failed to restore field after api probe",
				zap.String("selector", selector),
				zap.Error(err),
			)
		}
	}()

	icpt := netcap.New(d.stream)
	icpt.Start()
	defer icpt.Stop()

	// Nudge: any value change triggers the recalculation request.
	if err := p.SetValue(selector, "100"); err != nil {
		zap.L().Debug("amount: api probe nudge failed", zap.Error(err))
		return 0, false
	}

	deadline := time.NewTimer(d.APIWindow)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		if hints := icpt.MinAmounts(); len(hints) > 0 {
			return hints[0].Amount, true
		}
		select {
		case <-ctx.Done():
			return 0, false
		case <-deadline.C:
			return 0, false
		case <-tick.C:
		}
	}
}

// probeHTMLAttr reads a min attribute off a known amount input, or parses an
// "X – Y" range out of its placeholder.
func (d *Detector) probeHTMLAttr(_ context.Context, p page.Page, _ string) (float64, bool) {
	for _, selector := range amountSelectors {
		for _, el := range p.Find(selector) {
			if min := el.Attr("min"); min != "" {
				if v, err := parseAmount(min); err == nil && v > 0 {
					return v, true
				}
			}
			if m := rangePattern.FindStringSubmatch(el.Placeholder); m != nil {
				if v, err := parseAmount(m[1]); err == nil && v > 0 {
					return v, true
				}
			}
		}
	}
	return 0, false
}

// probeValidation writes an absurdly small value, waits for the UI to settle,
// and scans the visible error text for a minimum-amount phrase. The field's
// original value is restored regardless of outcome.
func (d *Detector) probeValidation(_ context.Context, p page.Page, _ string) (amount float64, ok bool) {
	selector, found := findAmountSelector(p)
	if !found {
		return 0, false
	}

	original, err := p.Value(selector)
	if err != nil {
		return 0, false
	}
	defer func() {
		if err := p.SetValue(selector, original); err != nil {
			zap.L().Warn("amount: failed to restore field after validation probe",
				zap.String("selector", selector),
				zap.Error(err),
			)
		}
	}()

	if err := p.SetValue(selector, "0.00000001"); err != nil {
		return 0, false
	}
	if d.SettleDelay > 0 {
		time.Sleep(d.SettleDelay)
	}

	return findMinimumPhrase(p.Text())
}

// probeLadder doubles a currency-appropriate seed until the submit control
// becomes enabled. Enabled on the first iteration means the seed itself is
// acceptable; later iterations take half the probe as the boundary. Bounded
// by iteration count, and the original value is always restored.
func (d *Detector) probeLadder(ctx context.Context, p page.Page, from string) (amount float64, ok bool) {
	selector, found := findAmountSelector(p)
	if !found {
		return 0, false
	}
	submit, found := findSubmitSelector(p)
	if !found {
		return 0, false
	}

	original, err := p.Value(selector)
	if err != nil {
		return 0, false
	}
	defer func() {
		if err := p.SetValue(selector, original); err != nil {
			zap.L().Warn("amount: failed to restore field after ladder probe",
				zap.String("selector", selector),
				zap.Error(err),
			)
		}
	}()

	probe := ladderSeed(from)
	for i := 0; i < d.LadderMaxIterations; i++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if err := p.SetValue(selector, formatAmount(probe)); err != nil {
			return 0, false
		}
		if d.SettleDelay > 0 {
			time.Sleep(d.SettleDelay)
		}
		if p.IsEnabled(submit) {
			if i == 0 {
				return probe, true
			}
			return probe / 2, true
		}
		probe *= 2
	}
	return 0, false
}

// ladderSeeds map a currency to a plausible starting probe.
var ladderSeeds = map[string]float64{
	"BTC":  0.0001,
	"ETH":  0.001,
	"LTC":  0.01,
	"XRP":  1,
	"USDT": 1,
	"USDC": 1,
}

func ladderSeed(currency string) float64 {
	if seed, ok := ladderSeeds[strings.ToUpper(currency)]; ok {
		return seed
	}
	return 0.001
}

func findAmountSelector(p page.Page) (string, bool) {
	for _, selector := range amountSelectors {
		if len(p.Find(selector)) > 0 {
			return selector, true
		}
	}
	return "", false
}

func findSubmitSelector(p page.Page) (string, bool) {
	for _, selector := range submitSelectors {
		if len(p.Find(selector)) > 0 {
			return selector, true
		}
	}
	return "", false
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
