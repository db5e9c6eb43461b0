package protocol

import "time"

// Envelope is a message exchanged between federation nodes over the gossip
// overlay. Exactly three envelope types exist; the wire form carries a type
// discriminator so receivers can dispatch without knowing which topic
// produced the bytes.
type Envelope interface {
	// WireType returns the discriminator written into the serialized form.
	WireType() string
}

// Wire type discriminators. Stable across versions.
const (
	WireTypeThread         = "thread"
	WireTypeCredentialLink = "credential_link"
	WireTypeSyncRequest    = "sync_request"
)

// ThreadAnnounce advertises a newly created discussion thread.
type ThreadAnnounce struct {
	ThreadID    string `json:"thread_id"`
	Title       string `json:"title"`
	ProposalCID string `json:"proposal_cid,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	AuthorDID   string `json:"author_did"`

	// Signature is reserved for future authenticity verification. It is
	// never computed or checked.
	Signature string `json:"signature,omitempty"`
}

// WireType implements Envelope.
func (m *ThreadAnnounce) WireType() string { return WireTypeThread }

// NewThreadAnnounce stamps the envelope with the current Unix time.
func NewThreadAnnounce(threadID, title, proposalCID, authorDID string) *ThreadAnnounce {
	return &ThreadAnnounce{
		ThreadID:    threadID,
		Title:       title,
		ProposalCID: proposalCID,
		CreatedAt:   time.Now().Unix(),
		AuthorDID:   authorDID,
	}
}

// CredentialLinkAnnounce advertises a verifiable-credential link attached to
// a thread.
type CredentialLinkAnnounce struct {
	LinkID        string `json:"link_id"`
	ThreadID      string `json:"thread_id"`
	CredentialCID string `json:"credential_cid"`
	LinkedBy      string `json:"linked_by"`
	CreatedAt     int64  `json:"created_at"`
	Signature     string `json:"signature,omitempty"`
}

// WireType implements Envelope.
func (m *CredentialLinkAnnounce) WireType() string { return WireTypeCredentialLink }

// NewCredentialLinkAnnounce stamps the envelope with the current Unix time.
func NewCredentialLinkAnnounce(linkID, threadID, credentialCID, linkedBy string) *CredentialLinkAnnounce {
	return &CredentialLinkAnnounce{
		LinkID:        linkID,
		ThreadID:      threadID,
		CredentialCID: credentialCID,
		LinkedBy:      linkedBy,
		CreatedAt:     time.Now().Unix(),
	}
}

// SyncRequest asks peers to replay the current state of a thread. A node
// rejoining after downtime publishes one of these and receives a full replay
// of the thread announcement plus all of its credential links.
type SyncRequest struct {
	ThreadID   string `json:"thread_id"`
	LastUpdate int64  `json:"last_update,omitempty"`
	Requester  string `json:"requester"`
}

// WireType implements Envelope.
func (m *SyncRequest) WireType() string { return WireTypeSyncRequest }

// NewSyncRequest ...
func NewSyncRequest(threadID string, lastUpdate int64, requester string) *SyncRequest {
	return &SyncRequest{
		ThreadID:   threadID,
		LastUpdate: lastUpdate,
		Requester:  requester,
	}
}
