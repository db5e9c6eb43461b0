package protocol

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

// The envelopes travel as canonical JSON with an inline "type" discriminator,
// matching the wire format of the other federation implementations:
//
//	{"type":"thread","thread_id":"...","title":"...",...}

type taggedThread struct {
	Type string `json:"type"`
	ThreadAnnounce
}

type taggedCredentialLink struct {
	Type string `json:"type"`
	CredentialLinkAnnounce
}

type taggedSyncRequest struct {
	Type string `json:"type"`
	SyncRequest
}

type wireHead struct {
	Type string `json:"type"`
}

func jsonHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

func encode(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, jsonHandle())
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Encode serializes an envelope with its type discriminator.
func Encode(e Envelope) ([]byte, error) {
	switch m := e.(type) {
	case *ThreadAnnounce:
		return encode(taggedThread{Type: m.WireType(), ThreadAnnounce: *m})
	case *CredentialLinkAnnounce:
		return encode(taggedCredentialLink{Type: m.WireType(), CredentialLinkAnnounce: *m})
	case *SyncRequest:
		return encode(taggedSyncRequest{Type: m.WireType(), SyncRequest: *m})
	default:
		return nil, fmt.Errorf("unknown envelope type %T", e)
	}
}

// Decode parses an envelope from its wire form. Truncated or structurally
// invalid input, or an unrecognized discriminator, yields an error; Decode
// never panics on remote input.
func Decode(data []byte) (Envelope, error) {
	var head wireHead
	dec := codec.NewDecoder(bytes.NewBuffer(data), jsonHandle())
	if err := dec.Decode(&head); err != nil {
		return nil, fmt.Errorf("decoding envelope head: %v", err)
	}

	switch head.Type {
	case WireTypeThread:
		var m taggedThread
		if err := decodeInto(data, &m); err != nil {
			return nil, err
		}
		return &m.ThreadAnnounce, nil
	case WireTypeCredentialLink:
		var m taggedCredentialLink
		if err := decodeInto(data, &m); err != nil {
			return nil, err
		}
		return &m.CredentialLinkAnnounce, nil
	case WireTypeSyncRequest:
		var m taggedSyncRequest
		if err := decodeInto(data, &m); err != nil {
			return nil, err
		}
		return &m.SyncRequest, nil
	default:
		return nil, fmt.Errorf("unknown envelope type %q", head.Type)
	}
}

func decodeInto(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewBuffer(data), jsonHandle())
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding envelope body: %v", err)
	}
	return nil
}
