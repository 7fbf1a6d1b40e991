package node

import "powconsensus/host"

// State is the node's in-memory tracking: the current chain head, this
// validator's own peer id, and the publish-pipeline guards.
type State struct {
	ChainHead host.BlockID
	PeerID    host.PeerID
	Guards    Guards
}
