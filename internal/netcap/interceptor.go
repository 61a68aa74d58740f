// Package netcap passively mines a page's inbound network responses for
// crypto addresses and minimum-amount hints during a bounded capture window.
package netcap

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/fathom/internal/cryptoaddr"
	"github.com/probelab/fathom/internal/page"
)

// Address is a crypto-style address found in network traffic during one
// capture window.
type Address struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Memo    string `json:"memo,omitempty"`
	Source  string `json:"source"` // api-json / api-header / api-text
	URL     string `json:"url"`
}

// MinAmount is a minimum-transaction-amount hint found in network traffic.
type MinAmount struct {
	Amount float64 `json:"min_amount"`
	URL    string  `json:"url"`
}

// Interceptor records findings from every completed response between Start
// and Stop. Response callbacks are delivered on the driver's event loop and
// interleave arbitrarily with the caller's own steps, so all state is guarded
// by a mutex and the handler never lets an error escape: one malformed
// response must not stop the capture window.
type Interceptor struct {
	stream page.ResponseStream

	mu         sync.Mutex
	cancel     func()
	addresses  []Address
	seenAddr   map[string]bool
	amounts    []MinAmount
	amountURLs map[string]bool
}

// New creates an Interceptor over the given response stream.
func New(stream page.ResponseStream) *Interceptor {
	return &Interceptor{stream: stream}
}

// Start clears prior state and attaches the response listener. Calling Start
// while a window is active restarts it.
func (i *Interceptor) Start() {
	i.mu.Lock()
	if i.cancel != nil {
		i.cancel()
	}
	i.addresses = nil
	i.seenAddr = map[string]bool{}
	i.amounts = nil
	i.amountURLs = map[string]bool{}
	i.mu.Unlock()

	cancel := i.stream.Subscribe(i.handle)
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
}

// Stop detaches the listener. Recorded findings stay readable until the next
// Start; callers must not wait on interceptor results after Stop.
func (i *Interceptor) Stop() {
	i.mu.Lock()
	cancel := i.cancel
	i.cancel = nil
	i.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Addresses returns every recorded address in discovery order.
func (i *Interceptor) Addresses() []Address {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Address, len(i.addresses))
	copy(out, i.addresses)
	return out
}

// BestAddress returns the first discovered address. Earlier responses are
// assumed more authoritative, so first seen ranks highest.
func (i *Interceptor) BestAddress() (Address, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.addresses) == 0 {
		return Address{}, false
	}
	return i.addresses[0], true
}

// MinAmounts returns every recorded minimum-amount hint in discovery order.
func (i *Interceptor) MinAmounts() []MinAmount {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]MinAmount, len(i.amounts))
	copy(out, i.amounts)
	return out
}

// WaitForAddress polls until an address is recorded or the timeout elapses.
func (i *Interceptor) WaitForAddress(ctx context.Context, timeout time.Duration) (Address, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		if addr, ok := i.BestAddress(); ok {
			return addr, true
		}
		select {
		case <-ctx.Done():
			return Address{}, false
		case <-deadline.C:
			return Address{}, false
		case <-tick.C:
		}
	}
}

// handle processes one completed response. All errors are swallowed here.
func (i *Interceptor) handle(resp page.Response) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("netcap: response handler recovered",
				zap.String("url", resp.URL),
				zap.Any("panic", r),
			)
		}
	}()
	i.scan(resp)
}

func (i *Interceptor) recordAddress(addr Address) {
	if addr.Network == "" {
		addr.Network = string(cryptoaddr.InferNetwork(addr.Address))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seenAddr == nil || i.seenAddr[addr.Address] {
		return
	}
	i.seenAddr[addr.Address] = true
	i.addresses = append(i.addresses, addr)

	zap.L().Debug("netcap: recorded address",
		zap.String("address", addr.Address),
		zap.String("network", addr.Network),
		zap.String("source", addr.Source),
		zap.String("url", addr.URL),
	)
}

func (i *Interceptor) recordMinAmount(url string, amount float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.amountURLs == nil || i.amountURLs[url] {
		return
	}
	i.amountURLs[url] = true
	i.amounts = append(i.amounts, MinAmount{Amount: amount, URL: url})

	zap.L().Debug("netcap: recorded min amount",
		zap.Float64("amount", amount),
		zap.String("url", url),
	)
}
