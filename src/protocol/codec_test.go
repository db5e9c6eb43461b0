package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func TestThreadAnnounceRoundTrip(t *testing.T) {
	in := NewThreadAnnounce("thread-1", "Guardian Recovery Proposal", "bafyproposal", "did:icn:alice")

	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Contains(data, []byte(`"type":"thread"`)) {
		t.Fatalf("serialized form should carry the type discriminator: %s", data)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := out.(*ThreadAnnounce)
	if !ok {
		t.Fatalf("decoded %T, expected *ThreadAnnounce", out)
	}

	if !reflect.DeepEqual(in, got) {
		t.Fatalf("round trip mismatch.\nin:  %#v\nout: %#v", in, got)
	}
}

func TestCredentialLinkAnnounceRoundTrip(t *testing.T) {
	in := NewCredentialLinkAnnounce("link-1", "thread-1", "bafycredential", "did:icn:bob")

	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := out.(*CredentialLinkAnnounce)
	if !ok {
		t.Fatalf("decoded %T, expected *CredentialLinkAnnounce", out)
	}

	if !reflect.DeepEqual(in, got) {
		t.Fatalf("round trip mismatch.\nin:  %#v\nout: %#v", in, got)
	}
}

func TestSyncRequestRoundTrip(t *testing.T) {
	in := NewSyncRequest("thread-1", 1700000000, "did:icn:carol")

	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	got, ok := out.(*SyncRequest)
	if !ok {
		t.Fatalf("decoded %T, expected *SyncRequest", out)
	}

	if !reflect.DeepEqual(in, got) {
		t.Fatalf("round trip mismatch.\nin:  %#v\nout: %#v", in, got)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"bogus"}`)); err == nil {
		t.Fatal("expected an error for an unknown discriminator")
	}
}

func TestDecodeMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"thread_id":"thread-1"}`)); err == nil {
		t.Fatal("expected an error when the discriminator is missing")
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("not json"),
		[]byte(`{"type":"thread"`),
		[]byte(`["type","thread"]`),
		[]byte(`{"type":42}`),
	}

	for _, in := range inputs {
		if _, err := Decode(in); err == nil {
			t.Errorf("expected an error for input %q", in)
		}
	}
}
