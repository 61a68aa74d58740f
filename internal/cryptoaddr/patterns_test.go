package cryptoaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	btcBech32 = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
	btcLegacy = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	ethAddr   = "0x52908400098527886E0F7030069857D2E4169EE7"
	tronAddr  = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"
	ltcBech32 = "ltc1qhd8fxxp2dx3vsmpac43z6ev0kllm4n53t5sk8x"
	ltcLegacy = "LbTjMGN7gELw4KbeyQf6cTCq859hD18guE"
	xrpAddr   = "rEb8TK3gBgk5auZkwc6sHnwrGVJH8DuaLh"
)

func TestMatches_PerNetwork(t *testing.T) {
	for _, addr := range []string{btcBech32, btcLegacy, ethAddr, tronAddr, ltcBech32, ltcLegacy, xrpAddr} {
		assert.True(t, Matches(addr), addr)
	}
}

func TestMatches_RejectsNonAddresses(t *testing.T) {
	for _, v := range []string{
		"",
		"hello world",
		"0x123",                  // too short
		"bc1qar0srrr",            // truncated bech32
		"please send to " + btcBech32, // must match in full
	} {
		assert.False(t, Matches(v), v)
	}
}

func TestMatches_TrimsWhitespace(t *testing.T) {
	assert.True(t, Matches("  "+ethAddr+"\n"))
}

func TestFind_EarliestMatchWins(t *testing.T) {
	text := "pay " + ethAddr + " or " + btcBech32
	addr, network, ok := Find(text)
	require.True(t, ok)
	assert.Equal(t, ethAddr, addr)
	assert.Equal(t, NetworkERC20, network)
}

func TestFindAll_DedupesAndOrders(t *testing.T) {
	text := btcBech32 + " then " + ethAddr + " then " + btcBech32
	assert.Equal(t, []string{btcBech32, ethAddr}, FindAll(text))
}

func TestInferNetwork(t *testing.T) {
	cases := map[string]Network{
		btcBech32: NetworkBTC,
		btcLegacy: NetworkBTC,
		ethAddr:   NetworkERC20,
		tronAddr:  NetworkTRC20,
		ltcBech32: NetworkLTC,
		ltcLegacy: NetworkLTC,
		xrpAddr:   NetworkXRP,
		"zzz":     Network(""),
	}
	for addr, want := range cases {
		assert.Equal(t, want, InferNetwork(addr), addr)
	}
}

func TestFindMemo(t *testing.T) {
	assert.Equal(t, "123456", FindMemo("destination tag: 123456"))
	assert.Equal(t, "98765", FindMemo("Memo (XRP): 98765"))
	assert.Empty(t, FindMemo("no tag here"))
	assert.Empty(t, FindMemo("tag is your email"))
}
