package net

// Command is a control instruction submitted to a transport. Commands are
// consumed exactly once, in submission order, by the transport's single
// command loop.
type Command interface {
	isCommand()
}

// PublishCommand broadcasts bytes on a topic.
type PublishCommand struct {
	Topic Topic
	Data  []byte
}

// ConnectCommand dials an overlay address. Dial failures are logged by the
// command loop, not surfaced to the submitter.
type ConnectCommand struct {
	Address string
}

// DisconnectCommand closes all connections to a peer.
type DisconnectCommand struct {
	Peer string
}

// StopCommand terminates the command loop. It travels through the same queue
// as the other commands so that previously submitted work is applied first.
type StopCommand struct{}

func (*PublishCommand) isCommand()    {}
func (*ConnectCommand) isCommand()    {}
func (*DisconnectCommand) isCommand() {}
func (*StopCommand) isCommand()       {}

// Event is a notification surfaced by a transport. Events are delivered to a
// single consumer in the order the overlay produced them; no ordering is
// guaranteed across peers.
type Event interface {
	isEvent()
}

// MessageEvent carries bytes received on a subscribed topic.
type MessageEvent struct {
	From  string
	Topic Topic
	Data  []byte
}

// PeerConnectedEvent signals a new overlay connection.
type PeerConnectedEvent struct {
	Peer string
}

// PeerDisconnectedEvent signals a closed overlay connection.
type PeerDisconnectedEvent struct {
	Peer string
}

func (*MessageEvent) isEvent()          {}
func (*PeerConnectedEvent) isEvent()    {}
func (*PeerDisconnectedEvent) isEvent() {}
