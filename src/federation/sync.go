package federation

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
	"github.com/InterCooperative-Network/icn-agoranet/src/config"
	"github.com/InterCooperative-Network/icn-agoranet/src/net"
	"github.com/InterCooperative-Network/icn-agoranet/src/protocol"
	"github.com/InterCooperative-Network/icn-agoranet/src/storage"
)

// SyncEngine ties the transport to the local store. It consumes the
// transport's event queue, materializes announcements into the store, answers
// sync requests by replaying a thread, and originates announcements for local
// operations. Applying the same announcement twice converges to the same
// state.
type SyncEngine struct {
	common.Lifecycle

	nodeDID      string
	syncInterval time.Duration

	trans  net.Transport
	store  storage.Store
	logger *logrus.Entry

	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// NewSyncEngine returns an unstarted engine.
func NewSyncEngine(conf *config.Config, trans net.Transport, store storage.Store, logger *logrus.Entry) *SyncEngine {
	return &SyncEngine{
		nodeDID:      conf.NodeDID,
		syncInterval: conf.SyncInterval,
		trans:        trans,
		store:        store,
		logger:       logger,
	}
}

// Start launches the engine's run loop. Calling Start on a running engine is
// a no-op.
func (e *SyncEngine) Start() error {
	if !e.TransitionTo(common.Stopped, common.Running) {
		return nil
	}

	e.shutdownCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go e.run()

	return nil
}

// Stop terminates the run loop and waits for it to exit. Stopping a stopped
// engine is a no-op.
func (e *SyncEngine) Stop() error {
	if e.GetState() != common.Running {
		return nil
	}

	close(e.shutdownCh)
	<-e.doneCh

	e.SetState(common.Stopped)

	return nil
}

func (e *SyncEngine) run() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-e.trans.Consumer():
			e.handleEvent(ev)
		case <-ticker.C:
			e.logger.WithField("known_peers", len(e.trans.KnownPeers())).Debug("Sync tick")
		case <-e.shutdownCh:
			return
		}
	}
}

func (e *SyncEngine) handleEvent(ev net.Event) {
	switch v := ev.(type) {
	case *net.MessageEvent:
		e.handleMessage(v)
	case *net.PeerConnectedEvent:
		e.logger.WithField("peer", v.Peer).Info("Peer connected")
	case *net.PeerDisconnectedEvent:
		e.logger.WithField("peer", v.Peer).Info("Peer disconnected")
	}
}

// handleMessage routes an inbound wire message by its decoded type. Anything
// that does not decode is dropped; a bad message from one peer must not take
// the engine down.
func (e *SyncEngine) handleMessage(ev *net.MessageEvent) {
	env, err := protocol.Decode(ev.Data)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"from":  ev.From,
			"topic": ev.Topic,
		}).Warn("Dropping malformed federation message")
		return
	}

	switch m := env.(type) {
	case *protocol.ThreadAnnounce:
		e.applyThread(ev.From, m)
	case *protocol.CredentialLinkAnnounce:
		e.applyLink(ev.From, m)
	case *protocol.SyncRequest:
		e.replayThread(ev.From, m)
	}
}

// applyThread materializes a thread announcement, keeping the announced id.
func (e *SyncEngine) applyThread(from string, m *protocol.ThreadAnnounce) {
	if _, err := e.store.GetThread(m.ThreadID); err == nil {
		e.logger.WithField("thread", m.ThreadID).Debug("Thread already known")
		return
	} else if !common.IsStore(err, common.KeyNotFound) {
		e.logger.WithError(err).WithField("thread", m.ThreadID).Error("Failed to look up thread")
		return
	}

	_, err := e.store.CreateThread(&storage.Thread{
		ID:          m.ThreadID,
		Title:       m.Title,
		ProposalCID: m.ProposalCID,
		AuthorDID:   m.AuthorDID,
		CreatedAt:   m.CreatedAt,
	})
	if common.IsStore(err, common.KeyAlreadyExists) {
		e.logger.WithField("thread", m.ThreadID).Debug("Thread already known")
		return
	}
	if err != nil {
		e.logger.WithError(err).WithField("thread", m.ThreadID).Error("Failed to store thread")
		return
	}

	e.logger.WithFields(logrus.Fields{
		"thread": m.ThreadID,
		"from":   from,
	}).Info("Thread replicated")
}

// applyLink materializes a credential-link announcement. A link that already
// exists is success, not an error; that is what makes replays idempotent.
func (e *SyncEngine) applyLink(from string, m *protocol.CredentialLinkAnnounce) {
	_, err := e.store.CreateCredentialLink(&storage.CredentialLink{
		ID:            m.LinkID,
		ThreadID:      m.ThreadID,
		CredentialCID: m.CredentialCID,
		LinkedBy:      m.LinkedBy,
		CreatedAt:     m.CreatedAt,
	})
	if common.IsStore(err, common.KeyAlreadyExists) {
		e.logger.WithField("thread", m.ThreadID).Debug("Credential link already known")
		return
	}
	if err != nil {
		e.logger.WithError(err).WithField("thread", m.ThreadID).Error("Failed to store credential link")
		return
	}

	e.logger.WithFields(logrus.Fields{
		"thread": m.ThreadID,
		"from":   from,
	}).Info("Credential link replicated")
}

// replayThread answers a sync request by re-announcing the thread and all its
// credential links. The replay is broadcast, so every node that was missing
// the thread catches up, not just the requester.
func (e *SyncEngine) replayThread(from string, m *protocol.SyncRequest) {
	t, err := e.store.GetThread(m.ThreadID)
	if common.IsStore(err, common.KeyNotFound) {
		e.logger.WithFields(logrus.Fields{
			"thread":    m.ThreadID,
			"requester": m.Requester,
		}).Debug("Ignoring sync request for unknown thread")
		return
	}
	if err != nil {
		e.logger.WithError(err).WithField("thread", m.ThreadID).Error("Failed to look up thread")
		return
	}

	links, err := e.store.GetLinksForThread(m.ThreadID)
	if err != nil {
		e.logger.WithError(err).WithField("thread", m.ThreadID).Error("Failed to look up credential links")
		return
	}

	if err := e.publish(threadAnnounceFor(t)); err != nil {
		e.logger.WithError(err).WithField("thread", t.ID).Warn("Failed to replay thread")
		return
	}

	for _, l := range links {
		if err := e.publish(linkAnnounceFor(l)); err != nil {
			e.logger.WithError(err).WithField("link", l.ID).Warn("Failed to replay credential link")
		}
	}

	e.logger.WithFields(logrus.Fields{
		"thread":    m.ThreadID,
		"links":     len(links),
		"requester": m.Requester,
	}).Info("Replayed thread for sync request")
}

// AnnounceThread broadcasts an already persisted thread to the federation. A
// thread that does not exist locally fails with a KeyNotFound StoreErr;
// nothing is ever announced before it is committed.
func (e *SyncEngine) AnnounceThread(threadID string) error {
	t, err := e.store.GetThread(threadID)
	if err != nil {
		return err
	}

	return e.publish(threadAnnounceFor(t))
}

// AnnounceCredentialLink broadcasts an already persisted credential link. A
// link that does not exist on the thread fails with a KeyNotFound StoreErr.
func (e *SyncEngine) AnnounceCredentialLink(threadID string, linkID string) error {
	links, err := e.store.GetLinksForThread(threadID)
	if err != nil {
		return err
	}

	for _, l := range links {
		if l.ID == linkID {
			return e.publish(linkAnnounceFor(l))
		}
	}

	return common.NewStoreErr("CredentialLink", common.KeyNotFound, linkID)
}

// CreateThread persists a new local thread, then announces it. Announce
// failures are logged, not returned; the thread is committed either way and
// peers catch up through sync requests.
func (e *SyncEngine) CreateThread(title string, proposalCID string) (*storage.Thread, error) {
	t, err := e.store.CreateThread(&storage.Thread{
		Title:       title,
		ProposalCID: proposalCID,
		AuthorDID:   e.nodeDID,
	})
	if err != nil {
		return nil, err
	}

	if err := e.AnnounceThread(t.ID); err != nil {
		e.logger.WithError(err).WithField("thread", t.ID).Warn("Failed to announce thread")
	}

	return t, nil
}

// LinkCredential attaches a credential to a local thread, then announces the
// link. Linking to an unknown thread fails with a KeyNotFound StoreErr;
// linking the same credential twice returns the existing link without
// re-announcing.
func (e *SyncEngine) LinkCredential(threadID string, credentialCID string) (*storage.CredentialLink, error) {
	if _, err := e.store.GetThread(threadID); err != nil {
		return nil, err
	}

	l, err := e.store.CreateCredentialLink(&storage.CredentialLink{
		ThreadID:      threadID,
		CredentialCID: credentialCID,
		LinkedBy:      e.nodeDID,
	})
	if common.IsStore(err, common.KeyAlreadyExists) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.AnnounceCredentialLink(threadID, l.ID); err != nil {
		e.logger.WithError(err).WithField("link", l.ID).Warn("Failed to announce credential link")
	}

	return l, nil
}

// RequestSync asks the federation to replay a thread.
func (e *SyncEngine) RequestSync(threadID string, lastUpdate int64) error {
	data, err := protocol.Encode(&protocol.SyncRequest{
		ThreadID:   threadID,
		LastUpdate: lastUpdate,
		Requester:  e.nodeDID,
	})
	if err != nil {
		return err
	}
	return e.trans.Publish(net.TopicSyncRequest, data)
}

// publish encodes an envelope and enqueues it on its topic.
func (e *SyncEngine) publish(env protocol.Envelope) error {
	topic, ok := topicFor(env)
	if !ok {
		return fmt.Errorf("no topic for message type %q", env.WireType())
	}

	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}

	return e.trans.Publish(topic, data)
}

func threadAnnounceFor(t *storage.Thread) *protocol.ThreadAnnounce {
	return &protocol.ThreadAnnounce{
		ThreadID:    t.ID,
		Title:       t.Title,
		ProposalCID: t.ProposalCID,
		AuthorDID:   t.AuthorDID,
		CreatedAt:   t.CreatedAt,
	}
}

func linkAnnounceFor(l *storage.CredentialLink) *protocol.CredentialLinkAnnounce {
	return &protocol.CredentialLinkAnnounce{
		LinkID:        l.ID,
		ThreadID:      l.ThreadID,
		CredentialCID: l.CredentialCID,
		LinkedBy:      l.LinkedBy,
		CreatedAt:     l.CreatedAt,
	}
}

func topicFor(env protocol.Envelope) (net.Topic, bool) {
	switch env.WireType() {
	case protocol.WireTypeThread:
		return net.TopicThreadAnnounce, true
	case protocol.WireTypeCredentialLink:
		return net.TopicCredentialLinkAnnounce, true
	case protocol.WireTypeSyncRequest:
		return net.TopicSyncRequest, true
	}
	return 0, false
}
