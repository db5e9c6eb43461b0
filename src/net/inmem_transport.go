package net

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
)

// InmemNetwork wires InmemTransports together so the federation can be
// exercised in-memory, without going over a network. Published messages are
// broadcast to every other running transport, mimicking a fully meshed
// gossip overlay.
type InmemNetwork struct {
	sync.Mutex
	transports map[string]*InmemTransport
}

// NewInmemNetwork ...
func NewInmemNetwork() *InmemNetwork {
	return &InmemNetwork{
		transports: make(map[string]*InmemTransport),
	}
}

// NewTransport creates a transport attached to this network, addressable by
// its randomly generated local id.
func (n *InmemNetwork) NewTransport(logger *logrus.Entry) *InmemTransport {
	trans := &InmemTransport{
		network: n,
		localID: uuid.NewString(),
		logger:  logger,
		peers:   make(map[string]struct{}),
	}

	n.Lock()
	n.transports[trans.localID] = trans
	n.Unlock()

	return trans
}

func (n *InmemNetwork) lookup(address string) *InmemTransport {
	n.Lock()
	defer n.Unlock()
	return n.transports[address]
}

func (n *InmemNetwork) broadcast(from *InmemTransport, topic Topic, data []byte) {
	n.Lock()
	targets := make([]*InmemTransport, 0, len(n.transports))
	for _, trans := range n.transports {
		if trans != from {
			targets = append(targets, trans)
		}
	}
	n.Unlock()

	for _, trans := range targets {
		trans.deliver(&MessageEvent{From: from.localID, Topic: topic, Data: data})
	}
}

// InmemTransport implements the Transport interface against an InmemNetwork.
// It runs the same command loop discipline as the libp2p transport: one
// loop, commands applied in submission order, Stop drained through the
// queue.
type InmemTransport struct {
	common.Lifecycle

	network *InmemNetwork
	localID string
	logger  *logrus.Entry

	peersLock sync.Mutex
	peers     map[string]struct{}

	cmdCh   chan Command
	eventCh chan Event
	doneCh  chan struct{}
}

// Start implements Transport.
func (t *InmemTransport) Start() error {
	if !t.TransitionTo(common.Stopped, common.Running) {
		return nil
	}

	t.peersLock.Lock()
	t.peers = make(map[string]struct{})
	t.peersLock.Unlock()

	t.cmdCh = make(chan Command, QueueSize)
	t.eventCh = make(chan Event, QueueSize)
	t.doneCh = make(chan struct{})

	go t.commandLoop()

	return nil
}

// Publish implements Transport.
func (t *InmemTransport) Publish(topic Topic, data []byte) error {
	return t.submit(&PublishCommand{Topic: topic, Data: data})
}

// Connect implements Transport.
func (t *InmemTransport) Connect(address string) error {
	return t.submit(&ConnectCommand{Address: address})
}

// Disconnect implements Transport.
func (t *InmemTransport) Disconnect(p string) error {
	return t.submit(&DisconnectCommand{Peer: p})
}

// Consumer implements Transport.
func (t *InmemTransport) Consumer() <-chan Event {
	return t.eventCh
}

// KnownPeers implements Transport.
func (t *InmemTransport) KnownPeers() []string {
	t.peersLock.Lock()
	defer t.peersLock.Unlock()

	res := make([]string, 0, len(t.peers))
	for p := range t.peers {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// LocalID implements Transport. Inmem transports are addressed by their
// local id.
func (t *InmemTransport) LocalID() string {
	return t.localID
}

// Stop implements Transport.
func (t *InmemTransport) Stop() error {
	if t.GetState() != common.Running {
		return nil
	}

	t.submit(&StopCommand{})

	<-t.doneCh
	t.SetState(common.Stopped)

	return nil
}

func (t *InmemTransport) submit(c Command) error {
	if t.GetState() != common.Running {
		return ErrTransportStopped
	}
	select {
	case t.cmdCh <- c:
		return nil
	case <-t.doneCh:
		return ErrTransportStopped
	}
}

func (t *InmemTransport) commandLoop() {
	defer close(t.doneCh)

	for {
		cmd := <-t.cmdCh

		switch c := cmd.(type) {
		case *PublishCommand:
			t.network.broadcast(t, c.Topic, c.Data)
		case *ConnectCommand:
			target := t.network.lookup(c.Address)
			if target == nil || target.GetState() != common.Running {
				t.logger.WithField("address", c.Address).Warn("Failed to dial peer")
				continue
			}
			t.addPeer(target.localID)
			target.addPeer(t.localID)
		case *DisconnectCommand:
			target := t.network.lookup(c.Peer)
			t.removePeer(c.Peer)
			if target != nil {
				target.removePeer(t.localID)
			}
		case *StopCommand:
			return
		}
	}
}

func (t *InmemTransport) addPeer(id string) {
	t.peersLock.Lock()
	_, known := t.peers[id]
	t.peers[id] = struct{}{}
	t.peersLock.Unlock()

	if !known {
		t.deliver(&PeerConnectedEvent{Peer: id})
	}
}

func (t *InmemTransport) removePeer(id string) {
	t.peersLock.Lock()
	_, known := t.peers[id]
	delete(t.peers, id)
	t.peersLock.Unlock()

	if known {
		t.deliver(&PeerDisconnectedEvent{Peer: id})
	}
}

func (t *InmemTransport) deliver(ev Event) {
	if t.GetState() != common.Running {
		return
	}
	select {
	case t.eventCh <- ev:
	case <-t.doneCh:
	}
}
