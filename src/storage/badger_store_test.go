package storage

import (
	"testing"

	cm "github.com/InterCooperative-Network/icn-agoranet/src/common"
)

func newTestBadger(t *testing.T) *BadgerStore {
	store, err := LoadOrCreateBadgerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerThreadRoundTrip(t *testing.T) {
	store := newTestBadger(t)

	created, err := store.CreateThread(&Thread{
		ID:          "thread-1",
		Title:       "Guardian Recovery Proposal",
		ProposalCID: "bafyproposal",
		AuthorDID:   "did:icn:alice",
		CreatedAt:   1700000000,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.GetThread(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *created {
		t.Fatalf("round trip mismatch.\nin:  %#v\nout: %#v", created, got)
	}

	if _, err := store.GetThread("nope"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	if _, err := store.CreateThread(&Thread{ID: "thread-1"}); !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("expected KeyAlreadyExists, got %v", err)
	}
}

func TestBadgerCredentialLinkDedup(t *testing.T) {
	store := newTestBadger(t)

	first, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      "thread-1",
		CredentialCID: "bafycredential",
		LinkedBy:      "did:icn:bob",
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      "thread-1",
		CredentialCID: "bafycredential",
		LinkedBy:      "did:icn:bob",
	})
	if !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("expected KeyAlreadyExists, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate create should return the existing link, got %q and %q", first.ID, second.ID)
	}

	links, err := store.GetLinksForThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
}

func TestBadgerLinksScopedToThread(t *testing.T) {
	store := newTestBadger(t)

	if _, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      "thread-1",
		CredentialCID: "bafya",
		LinkedBy:      "did:icn:bob",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      "thread-2",
		CredentialCID: "bafyb",
		LinkedBy:      "did:icn:bob",
	}); err != nil {
		t.Fatal(err)
	}

	links, err := store.GetLinksForThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].CredentialCID != "bafya" {
		t.Fatalf("expected only thread-1 links, got %#v", links)
	}
}

func TestBadgerPersistence(t *testing.T) {
	dir := t.TempDir()

	store, err := LoadOrCreateBadgerStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	created, err := store.CreateThread(&Thread{
		ID:    "thread-1",
		Title: "survives restarts",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      created.ID,
		CredentialCID: "bafycredential",
		LinkedBy:      "did:icn:bob",
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := LoadOrCreateBadgerStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.GetThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "survives restarts" {
		t.Fatalf("got title %q after reopen", got.Title)
	}

	links, err := reopened.GetLinksForThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link after reopen, got %d", len(links))
	}
}
