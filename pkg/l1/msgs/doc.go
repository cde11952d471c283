// Package msgs provides L1 protocol support and all message schemas.
package msgs

// L1 protocol is communicated between L1 controllers running the
// routine sequencer and L2 tools (shell, lockstep monitor).
// Every packet is a protobuf encoded Typed envelope.
//
// Producer: L1 controller
// Consumer: L2 tools
