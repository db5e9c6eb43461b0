package federation

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
	"github.com/InterCooperative-Network/icn-agoranet/src/net"
)

// recordingTransport counts dials so the tests can observe discovery without
// a real overlay.
type recordingTransport struct {
	sync.Mutex
	connects []string
	eventCh  chan net.Event
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		eventCh: make(chan net.Event, net.QueueSize),
	}
}

func (r *recordingTransport) Start() error { return nil }
func (r *recordingTransport) Stop() error  { return nil }

func (r *recordingTransport) Publish(topic net.Topic, data []byte) error { return nil }

func (r *recordingTransport) Connect(address string) error {
	r.Lock()
	defer r.Unlock()
	r.connects = append(r.connects, address)
	return nil
}

func (r *recordingTransport) Disconnect(peer string) error { return nil }

func (r *recordingTransport) Consumer() <-chan net.Event { return r.eventCh }

func (r *recordingTransport) KnownPeers() []string { return nil }

func (r *recordingTransport) LocalID() string { return "local" }

func (r *recordingTransport) dialCount(address string) int {
	r.Lock()
	defer r.Unlock()
	n := 0
	for _, a := range r.connects {
		if a == address {
			n++
		}
	}
	return n
}

func TestDiscoveryDialsBootstrapPeers(t *testing.T) {
	trans := newRecordingTransport()

	addr := "/ip4/127.0.0.1/tcp/4001"
	disco := NewPeerDiscovery(
		[]string{addr},
		20*time.Millisecond,
		trans,
		common.NewTestEntry(t, logrus.DebugLevel),
	)

	if err := disco.Start(); err != nil {
		t.Fatal(err)
	}
	defer disco.Stop()

	// One dial at startup, then one per tick.
	waitFor(t, func() bool {
		return trans.dialCount(addr) >= 3
	})
}

func TestDiscoverySkipsMalformedAddresses(t *testing.T) {
	trans := newRecordingTransport()

	good := "/ip4/127.0.0.1/tcp/4001"
	disco := NewPeerDiscovery(
		[]string{"not a multiaddr", good, "/badproto/xyz"},
		20*time.Millisecond,
		trans,
		common.NewTestEntry(t, logrus.DebugLevel),
	)

	if err := disco.Start(); err != nil {
		t.Fatal(err)
	}
	defer disco.Stop()

	waitFor(t, func() bool {
		return trans.dialCount(good) >= 1
	})

	trans.Lock()
	defer trans.Unlock()
	for _, a := range trans.connects {
		if a != good {
			t.Fatalf("malformed address was dialed: %q", a)
		}
	}
}

func TestDiscoveryStartStop(t *testing.T) {
	trans := newRecordingTransport()

	disco := NewPeerDiscovery(nil, time.Hour, trans, common.NewTestEntry(t, logrus.DebugLevel))

	if err := disco.Stop(); err != nil {
		t.Fatalf("stopping a stopped discovery should be a no-op, got %v", err)
	}

	if err := disco.Start(); err != nil {
		t.Fatal(err)
	}
	if err := disco.Start(); err != nil {
		t.Fatal(err)
	}

	if err := disco.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := disco.Stop(); err != nil {
		t.Fatal(err)
	}

	// Restart works.
	if err := disco.Start(); err != nil {
		t.Fatal(err)
	}
	if err := disco.Stop(); err != nil {
		t.Fatal(err)
	}
}
