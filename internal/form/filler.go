package form

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/page"
)

// Values is the bundle written into a classified form.
type Values struct {
	Amount string
	Wallet string
	Card   string
	Email  string
	Name   string
	Phone  string
}

// FillResult reports which purposes were written and any per-field errors.
type FillResult struct {
	Filled map[Purpose]string // purpose -> selector written
	Errors []error
}

// Filler writes a value bundle into classified fields. SettleDelay is waited
// after the amount write, since dependent fields may repopulate.
type Filler struct {
	SettleDelay time.Duration
}

// NewFiller returns a Filler with the default settle delay.
func NewFiller() *Filler {
	return &Filler{SettleDelay: 500 * time.Millisecond}
}

// Validate reports whether the classified fields are sufficient for a precise
// fill: an amount_from field plus at least one of wallet or card. When it
// returns false the caller must fall back to its legacy filler.
func Validate(fields []Field) bool {
	var hasAmount, hasDestination bool
	for _, f := range fields {
		switch f.Purpose {
		case PurposeAmountFrom:
			hasAmount = true
		case PurposeWallet, PurposeCard:
			hasDestination = true
		}
	}
	return hasAmount && hasDestination
}

// Fill writes values into the best-matching field per purpose. Card and
// wallet are mutually exclusive: a card field wins when present (crypto-to-
// fiat direction) and a generic wallet field is only filled without one.
func (fl *Filler) Fill(p page.Page, fields []Field, values Values) (FillResult, error) {
	res := FillResult{Filled: map[Purpose]string{}}

	hasCard := bestField(fields, PurposeCard) != nil && values.Card != ""

	writes := []struct {
		purpose Purpose
		value   string
		settle  bool
		skip    bool
	}{
		{purpose: PurposeAmountFrom, value: values.Amount, settle: true},
		{purpose: PurposeCard, value: values.Card, skip: !hasCard},
		{purpose: PurposeWallet, value: values.Wallet, skip: hasCard},
		{purpose: PurposeEmail, value: values.Email},
		{purpose: PurposeName, value: values.Name},
		{purpose: PurposePhone, value: values.Phone},
	}

	for _, w := range writes {
		if w.skip || w.value == "" {
			continue
		}
		f := bestField(fields, w.purpose)
		if f == nil {
			continue
		}
		if err := p.SetValue(f.Selector, w.value); err != nil {
			res.Errors = append(res.Errors, eris.Wrapf(err, "form: fill %s", w.purpose))
			continue
		}
		res.Filled[w.purpose] = f.Selector
		if w.settle && fl.SettleDelay > 0 {
			// Dependent fields (rate, receive amount) repopulate after the
			// amount changes.
			time.Sleep(fl.SettleDelay)
		}
	}

	zap.L().Debug("form: filled fields",
		zap.String("url", p.URL()),
		zap.Int("filled", len(res.Filled)),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// bestField selects the field to fill for a purpose. An exact canonical name
// match is preferred over the confidence ranking when both exist.
func bestField(fields []Field, purpose Purpose) *Field {
	var best *Field
	for i := range fields {
		f := &fields[i]
		if f.Purpose != purpose {
			continue
		}
		for _, canon := range canonicalNames[purpose] {
			if f.Element.Name == canon {
				return f
			}
		}
		if best == nil || f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}
