package net

import "errors"

// QueueSize is the capacity of the command and event queues. A full queue
// applies backpressure to the submitter rather than dropping.
const QueueSize = 32

// ErrTransportStopped is returned when a command is submitted to a transport
// that was never started, or that has been stopped.
var ErrTransportStopped = errors.New("transport is not running")

// Transport owns the node's connection to the gossip overlay and presents it
// as two unidirectional queues: commands in, events out.
type Transport interface {

	// Start establishes the local overlay identity, subscribes to all
	// federation topics and launches the command loop. Calling Start on a
	// running transport is a no-op.
	Start() error

	// Publish enqueues a broadcast of data on topic.
	Publish(topic Topic, data []byte) error

	// Connect enqueues a dial of an overlay address. Fire-and-forget: dial
	// failures are logged by the command loop.
	Connect(address string) error

	// Disconnect enqueues closing all connections to a peer.
	Disconnect(peer string) error

	// Consumer returns the channel on which events are delivered. The
	// channel is owned by the transport; exactly one consumer reads it.
	Consumer() <-chan Event

	// KnownPeers returns a snapshot of the currently connected peer ids.
	KnownPeers() []string

	// LocalID returns the node's overlay identity, or "" before Start.
	LocalID() string

	// Stop sends a stop command through the command queue and waits for the
	// command loop to fully terminate. No events are delivered after Stop
	// returns. Stopping a stopped transport is a no-op.
	Stop() error
}
