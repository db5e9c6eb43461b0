package federation

import (
	"time"

	"github.com/multiformats/go-multiaddr"
	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
	"github.com/InterCooperative-Network/icn-agoranet/src/net"
)

// PeerDiscovery keeps the node attached to the overlay by dialing a static
// list of bootstrap addresses, once at startup and again on every tick. Peers
// that are already connected are cheap redials; peers that dropped get
// reconnected.
type PeerDiscovery struct {
	common.Lifecycle

	bootstrapPeers []string
	interval       time.Duration

	trans  net.Transport
	logger *logrus.Entry

	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// NewPeerDiscovery returns an unstarted discovery loop.
func NewPeerDiscovery(bootstrapPeers []string, interval time.Duration, trans net.Transport, logger *logrus.Entry) *PeerDiscovery {
	return &PeerDiscovery{
		bootstrapPeers: bootstrapPeers,
		interval:       interval,
		trans:          trans,
		logger:         logger,
	}
}

// Start launches the discovery loop. Calling Start on a running discovery is
// a no-op.
func (d *PeerDiscovery) Start() error {
	if !d.TransitionTo(common.Stopped, common.Running) {
		return nil
	}

	d.shutdownCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.run()

	return nil
}

// Stop terminates the discovery loop and waits for it to exit. Stopping a
// stopped discovery is a no-op.
func (d *PeerDiscovery) Stop() error {
	if d.GetState() != common.Running {
		return nil
	}

	close(d.shutdownCh)
	<-d.doneCh

	d.SetState(common.Stopped)

	return nil
}

func (d *PeerDiscovery) run() {
	defer close(d.doneCh)

	d.dialBootstrapPeers()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.dialBootstrapPeers()
		case <-d.shutdownCh:
			return
		}
	}
}

// dialBootstrapPeers enqueues a dial for every wellformed bootstrap address.
// Malformed entries are skipped; one bad address in the config must not keep
// the node from reaching the others.
func (d *PeerDiscovery) dialBootstrapPeers() {
	for _, addr := range d.bootstrapPeers {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			d.logger.WithError(err).WithField("address", addr).Debug("Skipping malformed bootstrap address")
			continue
		}

		if err := d.trans.Connect(addr); err != nil {
			d.logger.WithError(err).WithField("address", addr).Warn("Failed to enqueue dial")
		}
	}
}
