package blockheader

import (
	"powconsensus/host"
	"powconsensus/hostservice"
)

// Ancestors lazily walks the chain upward from a starting block id via
// previous_id links, fetching each block through the given proxy. It stops
// silently (end of sequence) the moment a lookup fails or a header fails to
// parse; callers that need to distinguish "absent" from "end of chain"
// should walk explicitly instead.
type Ancestors struct {
	next  host.BlockID
	proxy *hostservice.Proxy
	done  bool
}

// NewAncestors starts a lazy ancestor walk from blockID.
func NewAncestors(blockID host.BlockID, proxy *hostservice.Proxy) *Ancestors {
	return &Ancestors{next: blockID, proxy: proxy}
}

// Next returns the next ancestor header, or ok == false once the walk has
// ended (lookup failure, decode failure, or a prior call already ended it).
func (a *Ancestors) Next() (Header, bool) {
	if a.done {
		return Header{}, false
	}

	block, err := a.proxy.GetBlock(a.next)
	if err != nil {
		a.done = true
		return Header{}, false
	}

	header, err := New(block)
	if err != nil {
		a.done = true
		return Header{}, false
	}

	a.next = block.PreviousID
	return header, true
}

// Take collects up to n ancestors, stopping early if the walk ends or if
// stop returns true for a produced header (the header for which stop
// returns true is NOT included).
func Take(a *Ancestors, n int, stop func(Header) bool) []Header {
	out := make([]Header, 0, n)
	for len(out) < n {
		header, ok := a.Next()
		if !ok {
			break
		}
		if stop != nil && stop(header) {
			break
		}
		out = append(out, header)
	}
	return out
}
