package federation

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/config"
	"github.com/InterCooperative-Network/icn-agoranet/src/net"
	"github.com/InterCooperative-Network/icn-agoranet/src/storage"
)

func newTestFederation(t *testing.T, network *net.InmemNetwork, did string) *Federation {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.NodeDID = did

	fed := NewFederation(conf)
	fed.Transport = network.NewTransport(conf.Logger())
	fed.Store = storage.NewInmemStore()

	if err := fed.Init(); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { fed.Stop() })

	return fed
}

func TestFederationStartStop(t *testing.T) {
	network := net.NewInmemNetwork()
	fed := newTestFederation(t, network, "did:icn:alice")

	if err := fed.Start(); err != nil {
		t.Fatal(err)
	}

	// Start on a running federation is a no-op.
	if err := fed.Start(); err != nil {
		t.Fatal(err)
	}

	if err := fed.Stop(); err != nil {
		t.Fatal(err)
	}

	// Stop on a stopped federation is a no-op.
	if err := fed.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestFederationRestart(t *testing.T) {
	network := net.NewInmemNetwork()
	fed := newTestFederation(t, network, "did:icn:alice")

	if err := fed.Start(); err != nil {
		t.Fatal(err)
	}
	if err := fed.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := fed.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	// The store survives a restart.
	created, err := fed.CreateThread("still here", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fed.GetThread(created.ID); err != nil {
		t.Fatal(err)
	}
}

func TestFederationEndToEnd(t *testing.T) {
	network := net.NewInmemNetwork()
	alice := newTestFederation(t, network, "did:icn:alice")
	bob := newTestFederation(t, network, "did:icn:bob")

	if err := alice.Start(); err != nil {
		t.Fatal(err)
	}
	if err := bob.Start(); err != nil {
		t.Fatal(err)
	}

	if err := alice.Transport.Connect(bob.Transport.LocalID()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		return len(alice.KnownPeers()) == 1 && len(bob.KnownPeers()) == 1
	})

	thread, err := alice.CreateThread("Guardian Recovery Proposal", "bafyproposal")
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		_, err := bob.GetThread(thread.ID)
		return err == nil
	})

	if _, err := alice.LinkCredential(thread.ID, "bafycredential"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		links, err := bob.GetThreadLinks(thread.ID)
		return err == nil && len(links) == 1
	})

	stats := alice.Stats()
	if stats["state"] != "Running" {
		t.Fatalf("stats state %q, expected Running", stats["state"])
	}
	if stats["known_peers"] != "1" {
		t.Fatalf("stats known_peers %q, expected 1", stats["known_peers"])
	}
	if stats["did"] != "did:icn:alice" {
		t.Fatalf("stats did %q", stats["did"])
	}
}

func TestFederationCatchUpAfterDowntime(t *testing.T) {
	network := net.NewInmemNetwork()
	alice := newTestFederation(t, network, "did:icn:alice")
	bob := newTestFederation(t, network, "did:icn:bob")

	if err := alice.Start(); err != nil {
		t.Fatal(err)
	}
	if err := bob.Start(); err != nil {
		t.Fatal(err)
	}

	// Bob goes down, alice keeps working.
	if err := bob.Stop(); err != nil {
		t.Fatal(err)
	}

	thread, err := alice.CreateThread("missed while away", "")
	if err != nil {
		t.Fatal(err)
	}

	// Bob comes back and asks for a replay.
	if err := bob.Start(); err != nil {
		t.Fatal(err)
	}
	if err := bob.RequestSync(thread.ID, 0); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		_, err := bob.GetThread(thread.ID)
		return err == nil
	})
}
