package net

import (
	"context"
	"sort"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	ic "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
)

// P2PTransport connects the node to the federation overlay through a libp2p
// host and a gossipsub router. One long-running command loop applies control
// commands in submission order; one reader per topic subscription forwards
// inbound messages to the event queue. The connected peer set is maintained
// from the host's connection notifications under a single short-held lock.
type P2PTransport struct {
	common.Lifecycle

	priv        ic.PrivKey
	listenAddrs []string
	logger      *logrus.Entry

	peersLock sync.Mutex
	peers     map[string]struct{}

	host    host.Host
	router  *pubsub.PubSub
	topics  map[Topic]*pubsub.Topic
	subs    map[Topic]*pubsub.Subscription
	localID string

	cmdCh   chan Command
	eventCh chan Event
	doneCh  chan struct{}
	cancel  context.CancelFunc
	readers sync.WaitGroup
}

// NewP2PTransport returns an unstarted transport. The private key becomes the
// node's overlay identity; listenAddrs are multiaddrs to bind.
func NewP2PTransport(priv ic.PrivKey, listenAddrs []string, logger *logrus.Entry) *P2PTransport {
	return &P2PTransport{
		priv:        priv,
		listenAddrs: listenAddrs,
		logger:      logger,
		peers:       make(map[string]struct{}),
	}
}

// Start implements Transport. Initialization failures (cannot bind, cannot
// configure the gossip router) are fatal and returned; everything after that
// is handled by the command loop.
func (t *P2PTransport) Start() error {
	if !t.TransitionTo(common.Stopped, common.Running) {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(
		libp2p.Identity(t.priv),
		libp2p.ListenAddrStrings(t.listenAddrs...),
	)
	if err != nil {
		cancel()
		t.SetState(common.Stopped)
		return err
	}

	router, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		cancel()
		h.Close()
		t.SetState(common.Stopped)
		return err
	}

	topics := make(map[Topic]*pubsub.Topic)
	subs := make(map[Topic]*pubsub.Subscription)
	for _, topic := range Topics() {
		th, err := router.Join(topic.WireName())
		if err != nil {
			cancel()
			h.Close()
			t.SetState(common.Stopped)
			return err
		}
		sub, err := th.Subscribe()
		if err != nil {
			cancel()
			h.Close()
			t.SetState(common.Stopped)
			return err
		}
		topics[topic] = th
		subs[topic] = sub
	}

	t.host = h
	t.router = router
	t.topics = topics
	t.subs = subs
	t.localID = h.ID().String()
	t.cancel = cancel

	t.peersLock.Lock()
	t.peers = make(map[string]struct{})
	t.peersLock.Unlock()

	t.cmdCh = make(chan Command, QueueSize)
	t.eventCh = make(chan Event, QueueSize)
	t.doneCh = make(chan struct{})

	h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			t.peerConnected(ctx, c.RemotePeer())
		},
		DisconnectedF: func(_ network.Network, c network.Conn) {
			t.peerDisconnected(ctx, c.RemotePeer())
		},
	})

	for _, sub := range subs {
		t.readers.Add(1)
		go t.readTopic(ctx, sub)
	}

	go t.commandLoop(ctx)

	t.logger.WithFields(logrus.Fields{
		"id":     t.localID,
		"listen": t.listenAddrs,
	}).Debug("Transport started")

	return nil
}

// Publish implements Transport.
func (t *P2PTransport) Publish(topic Topic, data []byte) error {
	return t.submit(&PublishCommand{Topic: topic, Data: data})
}

// Connect implements Transport.
func (t *P2PTransport) Connect(address string) error {
	return t.submit(&ConnectCommand{Address: address})
}

// Disconnect implements Transport.
func (t *P2PTransport) Disconnect(p string) error {
	return t.submit(&DisconnectCommand{Peer: p})
}

// Consumer implements Transport.
func (t *P2PTransport) Consumer() <-chan Event {
	return t.eventCh
}

// KnownPeers implements Transport.
func (t *P2PTransport) KnownPeers() []string {
	t.peersLock.Lock()
	defer t.peersLock.Unlock()

	res := make([]string, 0, len(t.peers))
	for p := range t.peers {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// LocalID implements Transport.
func (t *P2PTransport) LocalID() string {
	return t.localID
}

// Stop implements Transport. It routes a StopCommand through the command
// queue, so commands submitted before Stop are applied first, and returns
// only once the command loop has fully exited.
func (t *P2PTransport) Stop() error {
	if t.GetState() != common.Running {
		return nil
	}

	// The submit error just means another Stop won the race to the queue.
	t.submit(&StopCommand{})

	<-t.doneCh
	t.SetState(common.Stopped)

	t.logger.Debug("Transport stopped")
	return nil
}

func (t *P2PTransport) submit(c Command) error {
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

func (t *P2PTransport) commandLoop(ctx context.Context) {
	defer close(t.doneCh)

	for {
		cmd := <-t.cmdCh

		switch c := cmd.(type) {
		case *PublishCommand:
			th, ok := t.topics[c.Topic]
			if !ok {
				t.logger.WithField("topic", c.Topic).Warn("Publish on unknown topic")
				continue
			}
			if err := th.Publish(ctx, c.Data); err != nil {
				t.logger.WithError(err).WithField("topic", c.Topic).Warn("Failed to publish message")
			}
		case *ConnectCommand:
			// Dials run off-loop so a slow peer cannot stall publishes.
			go t.dial(ctx, c.Address)
		case *DisconnectCommand:
			pid, err := peer.Decode(c.Peer)
			if err != nil {
				t.logger.WithError(err).WithField("peer", c.Peer).Warn("Invalid peer id")
				continue
			}
			if err := t.host.Network().ClosePeer(pid); err != nil {
				t.logger.WithError(err).WithField("peer", c.Peer).Warn("Failed to close peer")
			}
		case *StopCommand:
			t.cancel()
			t.host.Close()
			t.readers.Wait()
			return
		}
	}
}

func (t *P2PTransport) dial(ctx context.Context, address string) {
	maddr, err := multiaddr.NewMultiaddr(address)
	if err != nil {
		t.logger.WithError(err).WithField("address", address).Warn("Invalid overlay address")
		return
	}

	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		t.logger.WithError(err).WithField("address", address).Warn("Overlay address has no peer id")
		return
	}

	if err := t.host.Connect(ctx, *info); err != nil {
		t.logger.WithError(err).WithField("address", address).Warn("Failed to dial peer")
	}
}

func (t *P2PTransport) readTopic(ctx context.Context, sub *pubsub.Subscription) {
	defer t.readers.Done()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}

		// Gossipsub loops our own publishes back to local subscribers.
		if msg.ReceivedFrom == t.host.ID() {
			continue
		}

		topic, ok := TopicFromWireName(msg.GetTopic())
		if !ok {
			t.logger.WithField("topic", msg.GetTopic()).Warn("Message on unknown topic")
			continue
		}

		t.emit(ctx, &MessageEvent{
			From:  msg.ReceivedFrom.String(),
			Topic: topic,
			Data:  msg.Data,
		})
	}
}

func (t *P2PTransport) peerConnected(ctx context.Context, pid peer.ID) {
	id := pid.String()

	t.peersLock.Lock()
	_, known := t.peers[id]
	t.peers[id] = struct{}{}
	t.peersLock.Unlock()

	if !known {
		t.emit(ctx, &PeerConnectedEvent{Peer: id})
	}
}

func (t *P2PTransport) peerDisconnected(ctx context.Context, pid peer.ID) {
	// Peers can hold several connections; the set entry goes away with the
	// last one.
	if len(t.host.Network().ConnsToPeer(pid)) > 0 {
		return
	}

	id := pid.String()

	t.peersLock.Lock()
	_, known := t.peers[id]
	delete(t.peers, id)
	t.peersLock.Unlock()

	if known {
		t.emit(ctx, &PeerDisconnectedEvent{Peer: id})
	}
}

// emit delivers an event to the consumer, blocking for backpressure, but
// gives up once the transport is shutting down.
func (t *P2PTransport) emit(ctx context.Context, ev Event) {
	select {
	case t.eventCh <- ev:
	case <-ctx.Done():
	}
}
