package storage

import (
	"testing"

	cm "github.com/InterCooperative-Network/icn-agoranet/src/common"
)

func TestInmemCreateThreadGeneratesID(t *testing.T) {
	store := NewInmemStore()

	created, err := store.CreateThread(&Thread{
		Title:     "Guardian Recovery Proposal",
		AuthorDID: "did:icn:alice",
	})
	if err != nil {
		t.Fatal(err)
	}

	if created.ID == "" {
		t.Fatal("expected a generated thread id")
	}
	if created.CreatedAt == 0 {
		t.Fatal("expected a created_at timestamp")
	}

	got, err := store.GetThread(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != created.Title {
		t.Fatalf("got title %q, expected %q", got.Title, created.Title)
	}
}

func TestInmemCreateThreadKeepsProvidedID(t *testing.T) {
	store := NewInmemStore()

	created, err := store.CreateThread(&Thread{
		ID:        "thread-1",
		Title:     "Replicated thread",
		CreatedAt: 1700000000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if created.ID != "thread-1" {
		t.Fatalf("got id %q, expected the provided id", created.ID)
	}
	if created.CreatedAt != 1700000000 {
		t.Fatalf("got created_at %d, expected the provided timestamp", created.CreatedAt)
	}
}

func TestInmemCreateThreadDuplicate(t *testing.T) {
	store := NewInmemStore()

	if _, err := store.CreateThread(&Thread{ID: "thread-1", Title: "first"}); err != nil {
		t.Fatal(err)
	}

	_, err := store.CreateThread(&Thread{ID: "thread-1", Title: "second"})
	if !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("expected KeyAlreadyExists, got %v", err)
	}

	got, err := store.GetThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "first" {
		t.Fatalf("duplicate create should not overwrite; got title %q", got.Title)
	}
}

func TestInmemGetThreadNotFound(t *testing.T) {
	store := NewInmemStore()

	_, err := store.GetThread("nope")
	if !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func TestInmemCredentialLinkDedup(t *testing.T) {
	store := NewInmemStore()

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

	// Same credential linked by someone else is a new link.
	if _, err := store.CreateCredentialLink(&CredentialLink{
		ThreadID:      "thread-1",
		CredentialCID: "bafycredential",
		LinkedBy:      "did:icn:carol",
	}); err != nil {
		t.Fatal(err)
	}

	links, err := store.GetLinksForThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
}

func TestInmemGetLinksForThreadOrder(t *testing.T) {
	store := NewInmemStore()

	for i, cid := range []string{"bafya", "bafyb", "bafyc"} {
		if _, err := store.CreateCredentialLink(&CredentialLink{
			ThreadID:      "thread-1",
			CredentialCID: cid,
			LinkedBy:      "did:icn:bob",
			CreatedAt:     int64(1700000000 + i),
		}); err != nil {
			t.Fatal(err)
		}
	}

	links, err := store.GetLinksForThread("thread-1")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"bafya", "bafyb", "bafyc"}
	for i, l := range links {
		if l.CredentialCID != want[i] {
			t.Fatalf("links out of order: got %q at %d, expected %q", l.CredentialCID, i, want[i])
		}
	}
}
