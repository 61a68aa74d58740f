package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStatic(t *testing.T, html string) *Static {
	t.Helper()
	p, err := NewStatic("https://acme-exchange.io/", []byte(html))
	require.NoError(t, err)
	return p
}

func TestStatic_SetAndGetValue(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<input type="text" name="amount_from">
		<textarea name="comment"></textarea>
	</body></html>`)

	require.NoError(t, p.SetValue(`input[name="amount_from"]`, "0.5"))
	got, err := p.Value(`input[name="amount_from"]`)
	require.NoError(t, err)
	assert.Equal(t, "0.5", got)

	require.NoError(t, p.SetValue("textarea", "note"))
	got, err = p.Value("textarea")
	require.NoError(t, err)
	assert.Equal(t, "note", got)

	assert.Error(t, p.SetValue("#missing", "x"))
	_, err = p.Value("#missing")
	assert.Error(t, err)
}

func TestStatic_FindPopulatesElementInfo(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<label for="amt">You send</label>
		<input type="text" id="amt" name="amount_from" placeholder="0.1" class="field wide" data-test="1">
	</body></html>`)

	els := p.Find("input")
	require.Len(t, els, 1)
	el := els[0]
	assert.Equal(t, "#amt", el.Selector)
	assert.Equal(t, "input", el.Tag)
	assert.Equal(t, "text", el.Type)
	assert.Equal(t, "amount_from", el.Name)
	assert.Equal(t, "0.1", el.Placeholder)
	assert.Equal(t, "You send", el.Label)
	assert.Equal(t, []string{"field", "wide"}, el.Classes)
	assert.Equal(t, "1", el.Attr("data-test"))
	assert.True(t, el.Visible)
}

func TestStatic_EnclosingLabel(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<label>Wallet address <input type="text" name="wallet"></label>
	</body></html>`)

	els := p.Find("input")
	require.Len(t, els, 1)
	assert.Equal(t, "Wallet address", els[0].Label)
}

func TestStatic_Visibility(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<input id="a" type="text">
		<input id="b" type="hidden">
		<input id="c" type="text" style="display: none">
		<input id="d" type="text" style="visibility:hidden">
		<input id="e" type="text" hidden>
	</body></html>`)

	assert.True(t, p.IsVisible("#a"))
	assert.False(t, p.IsVisible("#b"))
	assert.False(t, p.IsVisible("#c"))
	assert.False(t, p.IsVisible("#d"))
	assert.False(t, p.IsVisible("#e"))
	assert.False(t, p.IsVisible("#missing"))
}

func TestStatic_IsEnabled(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<button id="go" type="submit">Go</button>
		<button id="stop" type="submit" disabled>Stop</button>
	</body></html>`)

	assert.True(t, p.IsEnabled("#go"))
	assert.False(t, p.IsEnabled("#stop"))
	assert.False(t, p.IsEnabled("#missing"))
}

func TestStatic_SrcdocFrames(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<iframe src="https://pay.example.com/w/1" srcdoc="&lt;html&gt;&lt;body&gt;&lt;p&gt;pay here&lt;/p&gt;&lt;/body&gt;&lt;/html&gt;"></iframe>
	</body></html>`)

	frames := p.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "https://pay.example.com/w/1", frames[0].URL())
	assert.Equal(t, "pay here", frames[0].Text())
}

func TestCSSPath_RoundTrips(t *testing.T) {
	p := newTestStatic(t, `<html><body>
		<div><span>first</span><span>second</span></div>
	</body></html>`)

	els := p.Find("span")
	require.Len(t, els, 2)
	for i, el := range els {
		found := p.Find(el.Selector)
		require.Len(t, found, 1, "selector %q", el.Selector)
		assert.Equal(t, el.Text, found[0].Text, "element %d", i)
	}
}
