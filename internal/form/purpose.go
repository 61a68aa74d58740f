// Package form enumerates form-like elements on a page, assigns each a
// semantic purpose independent of the detected engine family, and fills them
// from a value bundle.
package form

import "strings"

// Purpose is the inferred semantic role of a form element.
type Purpose string

const (
	PurposeAmountFrom Purpose = "amount_from"
	PurposeAmountTo   Purpose = "amount_to"
	PurposeCard       Purpose = "card"
	PurposeWallet     Purpose = "wallet"
	PurposeEmail      Purpose = "email"
	PurposeName       Purpose = "name"
	PurposePhone      Purpose = "phone"
	PurposeSubmit     Purpose = "submit"
	PurposeUnknown    Purpose = "unknown"
)

// rule matches on substring presence across an element's name, id,
// placeholder, and associated label text. Rules are evaluated in order and the
// first match wins, so more specific rules come first. Excluding rules drop
// the element entirely: technical fields are never classified and the
// crypto-address output slot is never auto-filled.
type rule struct {
	purpose    Purpose
	confidence float64
	fragments  []string
	exclude    bool
}

// rules is ordered from most to least specific. Confidences are calibrated so
// a more specific match always outranks a generic one.
var rules = []rule{
	{exclude: true, fragments: []string{"csrf", "_token", "captcha", "honeypot", "nonce", "g-recaptcha"}},
	{purpose: PurposeAmountFrom, confidence: 0.95, fragments: []string{"amount_from", "from_amount", "amount-send", "send_amount", "sum1", "amountfrom", "you send"}},
	{purpose: PurposeAmountTo, confidence: 0.9, fragments: []string{"amount_to", "to_amount", "amount-receive", "receive_amount", "sum2", "amountto", "you get", "you receive"}},
	{purpose: PurposeCard, confidence: 0.9, fragments: []string{"card_number", "cardnumber", "card", "requisites", "cc_number", "account_number"}},
	// The exchanger's own deposit address is the output slot, never an input.
	{exclude: true, fragments: []string{"deposit_address", "deposit-address", "our_address", "payin_address", "address_out"}},
	{purpose: PurposeWallet, confidence: 0.85, fragments: []string{"wallet", "address", "account"}},
	{purpose: PurposeEmail, confidence: 0.9, fragments: []string{"email", "e-mail", "mail"}},
	{purpose: PurposeName, confidence: 0.7, fragments: []string{"name", "fio", "first_name", "last_name"}},
	{purpose: PurposePhone, confidence: 0.8, fragments: []string{"phone", "tel", "mobile"}},
	{purpose: PurposeSubmit, confidence: 0.75, fragments: []string{"submit", "exchange", "continue", "next", "обмен", "отправить"}},
}

// canonicalNames maps a purpose to names that are an exact match for it. An
// exact canonical hit is preferred over a higher-confidence fuzzy hit when
// selecting the field to fill.
var canonicalNames = map[Purpose][]string{
	PurposeAmountFrom: {"amount_from", "from_amount", "sum1"},
	PurposeAmountTo:   {"amount_to", "to_amount", "sum2"},
	PurposeCard:       {"card_number", "card"},
	PurposeWallet:     {"wallet", "address"},
	PurposeEmail:      {"email"},
	PurposeName:       {"name"},
	PurposePhone:      {"phone"},
}

// haystack concatenates the texts a rule matches against.
func haystack(name, id, placeholder, label string) string {
	return strings.ToLower(name + " " + id + " " + placeholder + " " + label)
}
