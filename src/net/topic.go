package net

// Topic identifies one of the three gossip channels used by the federation.
// The set is closed; messages arriving on any other wire name are dropped
// before they reach a consumer.
type Topic uint32

const (
	// TopicThreadAnnounce carries thread creation announcements.
	TopicThreadAnnounce Topic = iota
	// TopicCredentialLinkAnnounce carries credential link announcements.
	TopicCredentialLinkAnnounce
	// TopicSyncRequest carries thread catch-up requests.
	TopicSyncRequest
)

// Wire names are stable across versions.
const (
	threadAnnounceWireName         = "icn/threads/announce/v1"
	credentialLinkAnnounceWireName = "icn/links/announce/v1"
	syncRequestWireName            = "icn/threads/sync/v1"
)

// WireName returns the overlay topic name.
func (t Topic) WireName() string {
	switch t {
	case TopicThreadAnnounce:
		return threadAnnounceWireName
	case TopicCredentialLinkAnnounce:
		return credentialLinkAnnounceWireName
	case TopicSyncRequest:
		return syncRequestWireName
	default:
		return "unknown"
	}
}

// String ...
func (t Topic) String() string {
	return t.WireName()
}

// TopicFromWireName maps an overlay topic name back to the enumeration. The
// second return value is false for unrecognized names.
func TopicFromWireName(name string) (Topic, bool) {
	switch name {
	case threadAnnounceWireName:
		return TopicThreadAnnounce, true
	case credentialLinkAnnounceWireName:
		return TopicCredentialLinkAnnounce, true
	case syncRequestWireName:
		return TopicSyncRequest, true
	default:
		return 0, false
	}
}

// Topics returns all federation topics, in subscription order.
func Topics() []Topic {
	return []Topic{
		TopicThreadAnnounce,
		TopicCredentialLinkAnnounce,
		TopicSyncRequest,
	}
}
