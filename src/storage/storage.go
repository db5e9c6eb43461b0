package storage

// Thread is a discussion thread as persisted locally. Threads materialized
// from federation announcements keep the id chosen by the originating node,
// which is what makes repeated delivery converge instead of duplicating.
type Thread struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ProposalCID string `json:"proposal_cid,omitempty"`
	AuthorDID   string `json:"author_did,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// CredentialLink attaches a verifiable credential to a thread.
type CredentialLink struct {
	ID            string `json:"id"`
	ThreadID      string `json:"thread_id"`
	CredentialCID string `json:"credential_cid"`
	LinkedBy      string `json:"linked_by"`
	CreatedAt     int64  `json:"created_at"`
}

// ThreadRepository is the narrow thread surface consumed by the federation
// core.
type ThreadRepository interface {

	// GetThread returns the thread, or a KeyNotFound StoreErr.
	GetThread(id string) (*Thread, error)

	// CreateThread persists a thread. An empty ID is replaced with a fresh
	// UUID and a zero CreatedAt is stamped with the current time; creating a
	// thread whose id already exists returns a KeyAlreadyExists StoreErr.
	CreateThread(t *Thread) (*Thread, error)
}

// CredentialLinkRepository is the narrow credential-link surface consumed by
// the federation core.
type CredentialLinkRepository interface {

	// GetLinksForThread returns all links attached to a thread, oldest
	// first.
	GetLinksForThread(threadID string) ([]*CredentialLink, error)

	// CreateCredentialLink persists a link, deduplicating on
	// (thread_id, credential_cid, linked_by). When such a link already
	// exists it is returned together with a KeyAlreadyExists StoreErr, so
	// callers replaying announcements can treat the conflict as success.
	CreateCredentialLink(l *CredentialLink) (*CredentialLink, error)
}

// Store combines the two repositories behind a closable handle.
type Store interface {
	ThreadRepository
	CredentialLinkRepository
	Close() error
}

func linkDedupKey(threadID, credentialCID, linkedBy string) string {
	return threadID + "/" + credentialCID + "/" + linkedBy
}
