// Package moduleproc provides the ordered module-chain harness sipgo
// itself does not: sipgo's Server only offers one handler per SIP
// method (server.go's requestHandlers map plus a flat
// requestMiddlewares slice run unconditionally before it). The
// distributor needs a PJSIP-style priority chain where a module can
// inspect a request, decide to stop the chain, or explicitly continue
// processing starting after its own position — the "process_rx_data
// (start_module, idx_after_start)" pattern.
package moduleproc

import (
	"context"

	"github.com/emiago/sipgo/sip"

	"github.com/sebas/distributor/internal/rdata"
)

// Verdict is what a Module returns after inspecting a request.
type Verdict int

const (
	// Continue lets the chain proceed to the next module.
	Continue Verdict = iota
	// Stop ends the chain; the module has already produced a final
	// disposition (typically a response already sent).
	Stop
)

// Module is one stage in the chain. Priority orders modules from low
// (run first) to high (run last), matching PJSIP's priority convention
// where PJSIP_MOD_PRIORITY_TRANSPORT_LAYER runs earliest.
type Module interface {
	Name() string
	Priority() int
	Process(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction) Verdict
}

// Chain is an ordered, priority-sorted sequence of modules.
type Chain struct {
	modules []Module
}

// NewChain builds a chain from modules, sorted ascending by Priority.
func NewChain(modules ...Module) *Chain {
	c := &Chain{modules: append([]Module(nil), modules...)}
	c.sort()
	return c
}

func (c *Chain) sort() {
	for i := 1; i < len(c.modules); i++ {
		for j := i; j > 0 && c.modules[j].Priority() < c.modules[j-1].Priority(); j-- {
			c.modules[j], c.modules[j-1] = c.modules[j-1], c.modules[j]
		}
	}
}

// Run processes d through every module in priority order, stopping
// early if any module returns Stop. Equivalent to PJSIP's
// process_rx_data(NULL, 0): start at the very first module. Returns
// true if some module stopped the chain (a final disposition was
// already produced), false if every module ran to completion
// unhandled.
func (c *Chain) Run(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction) bool {
	return c.RunFrom(ctx, d, tx, 0)
}

// RunFrom resumes the chain starting at module index idx, the
// equivalent of PJSIP's process_rx_data(start_module, idx_after_start):
// a module that wants the rest of the chain to run after it has already
// done its own work calls back into RunFrom(idx+1) rather than
// returning Continue, when it needs to inject work between its own
// processing and the next module's (for example, re-running the chain
// after a serializer hop).
func (c *Chain) RunFrom(ctx context.Context, d *rdata.Data, tx sip.ServerTransaction, idx int) bool {
	for i := idx; i < len(c.modules); i++ {
		if c.modules[i].Process(ctx, d, tx) == Stop {
			return true
		}
	}
	return false
}

// IndexOf returns the position of a module by name, or -1 if absent.
// Used by a module that needs to resume the chain after itself by name
// rather than by a hardcoded index.
func (c *Chain) IndexOf(name string) int {
	for i, m := range c.modules {
		if m.Name() == name {
			return i
		}
	}
	return -1
}
