package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/fathom/internal/netcap"
	"github.com/probelab/fathom/internal/page"
)

const (
	btcAddr  = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	trxAddr  = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"
	ethAddr2 = "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"
)

// countingPage wraps a Static and records which tiers were touched.
type countingPage struct {
	*page.Static
	findCalls   int
	framesCalls int
}

func (c *countingPage) Find(selector string) []page.ElementInfo {
	c.findCalls++
	return c.Static.Find(selector)
}

func (c *countingPage) Frames() []page.Frame {
	c.framesCalls++
	return c.Static.Frames()
}

// stubInterceptor returns a fixed best address and counts lookups.
type stubInterceptor struct {
	addr  netcap.Address
	ok    bool
	calls int
}

func (s *stubInterceptor) BestAddress() (netcap.Address, bool) {
	s.calls++
	return s.addr, s.ok
}

func staticPage(t *testing.T, html string) *page.Static {
	t.Helper()
	p, err := page.NewStatic("https://acme-exchange.io/order/1", []byte(html))
	require.NoError(t, err)
	return p
}

func TestAddress_ClipboardAttributeWins(t *testing.T) {
	p := staticPage(t, `<html><body>
		<button data-clipboard-text="`+btcAddr+`">Copy</button>
		<div class="note">send to `+trxAddr+`</div>
	</body></html>`)

	res, ok := Address(p, nil)
	require.True(t, ok)
	assert.Equal(t, btcAddr, res.Address)
	assert.Equal(t, "BTC", res.Network)
	assert.Equal(t, "dom", res.Source)
}

func TestAddress_ReadonlyInputValue(t *testing.T) {
	p := staticPage(t, `<html><body>
		<input readonly value="`+trxAddr+`">
	</body></html>`)

	res, ok := Address(p, nil)
	require.True(t, ok)
	assert.Equal(t, trxAddr, res.Address)
	assert.Equal(t, "TRC20", res.Network)
}

func TestAddress_BodyTextFallbackWithMemo(t *testing.T) {
	p := staticPage(t, `<html><body>
		<p>Deposit exactly 10 XRP to rEb8TK3gBgk5auZkwc6sHnwrGVJH8DuaLh with destination tag 554433.</p>
	</body></html>`)

	res, ok := Address(p, nil)
	require.True(t, ok)
	assert.Equal(t, "rEb8TK3gBgk5auZkwc6sHnwrGVJH8DuaLh", res.Address)
	assert.Equal(t, "XRP", res.Network)
	assert.Equal(t, "554433", res.Memo)
	assert.Equal(t, "dom", res.Source)
}

func TestAddress_DocumentHitShortCircuits(t *testing.T) {
	p := &countingPage{Static: staticPage(t, `<html><body>
		<code>`+btcAddr+`</code>
	</body></html>`)}
	icpt := &stubInterceptor{ok: true, addr: netcap.Address{Address: ethAddr2}}

	res, ok := Address(p, icpt)
	require.True(t, ok)
	assert.Equal(t, btcAddr, res.Address)
	assert.Zero(t, p.framesCalls)
	assert.Zero(t, icpt.calls)
}

func TestAddress_FrameScanGatedByURLKeyword(t *testing.T) {
	p := staticPage(t, `<html><body><p>choose your coin</p></body></html>`)
	frame := staticPage(t, `<html><body><code>`+btcAddr+`</code></body></html>`)
	p.AddFrame(frame)

	// Frame URL carries no payment keyword and neither does its text beyond
	// the address itself, so the tier skips it.
	_, ok := Address(p, nil)
	assert.False(t, ok)
}

func TestAddress_FrameContentKeywordAdmits(t *testing.T) {
	p := staticPage(t, `<html><body><p>choose your coin</p></body></html>`)
	frame, err := page.NewStatic("https://widgets.example.com/f/9", []byte(
		`<html><body><p>Deposit here:</p><code>`+btcAddr+`</code></body></html>`))
	require.NoError(t, err)
	p.AddFrame(frame)

	res, ok := Address(p, nil)
	require.True(t, ok)
	assert.Equal(t, btcAddr, res.Address)
	assert.Equal(t, "iframe", res.Source)
}

func TestAddress_InterceptorFallback(t *testing.T) {
	p := staticPage(t, `<html><body><p>loading...</p></body></html>`)
	icpt := &stubInterceptor{ok: true, addr: netcap.Address{
		Address: ethAddr2,
		Network: "ERC20",
		Memo:    "42",
		Source:  "api-json",
	}}

	res, ok := Address(p, icpt)
	require.True(t, ok)
	assert.Equal(t, ethAddr2, res.Address)
	assert.Equal(t, "ERC20", res.Network)
	assert.Equal(t, "42", res.Memo)
	assert.Equal(t, "api-json", res.Source)
	assert.Equal(t, 1, icpt.calls)
}

func TestAddress_NothingFound(t *testing.T) {
	p := staticPage(t, `<html><body><p>loading...</p></body></html>`)
	icpt := &stubInterceptor{ok: false}

	_, ok := Address(p, icpt)
	assert.False(t, ok)
	assert.Equal(t, 1, icpt.calls)
}

func TestAddress_NilInterceptorSkipsNetworkTier(t *testing.T) {
	p := staticPage(t, `<html><body><p>loading...</p></body></html>`)
	_, ok := Address(p, nil)
	assert.False(t, ok)
}
