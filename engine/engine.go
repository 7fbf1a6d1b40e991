// Package engine provides the startup and update-loop glue between the host
// transport and the node state machine.
package engine

import (
	"time"

	"powconsensus/host"
	"powconsensus/logger"
	"powconsensus/node"
	"powconsensus/telemetry"
)

// Name, Version, and AdditionalProtocols identify this engine to the host,
// per the consensus engine registration contract.
const (
	Name    = "PoW"
	Version = "0.1"
)

// DefaultUpdateRecvTimeout is how long the update loop waits for a host
// update before invoking TryPublish and looping again.
const DefaultUpdateRecvTimeout = 10 * time.Millisecond

// AdditionalProtocols reports the engine's additional wire protocols: none.
func AdditionalProtocols() []string { return nil }

// Engine drives a single Node through its startup and update loop.
type Engine struct {
	UpdateRecvTimeout time.Duration

	// Telemetry, if set, is attached to the driven Node so retarget and
	// fallback decisions are recorded for operator inspection.
	Telemetry *telemetry.Store
}

// New returns an Engine with the default update-receive timeout.
func New() *Engine {
	return &Engine{UpdateRecvTimeout: DefaultUpdateRecvTimeout}
}

// Start creates a node bound to service, initializes it from startup, and
// runs the update loop until Shutdown or the updates channel closes.
// Initialization errors are logged and cause a graceful return rather than
// propagating: a single bad startup should not crash the host process.
func (e *Engine) Start(updates <-chan host.Update, service host.Service, startup host.StartupState) {
	n := node.New(service)
	n.Telemetry = e.Telemetry

	if err := n.Initialize(startup); err != nil {
		logger.Errorf("init error: %v", err)
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				logger.Error("disconnected from validator")
				return
			}

			keepRunning, err := n.HandleUpdate(update)
			if err != nil {
				logger.Errorf("update error: %v", err)
			}
			if !keepRunning {
				return
			}
		case <-time.After(e.UpdateRecvTimeout):
		}

		if err := n.TryPublish(); err != nil {
			logger.Errorf("publish error: %v", err)
		}
	}
}
