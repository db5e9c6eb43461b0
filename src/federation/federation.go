package federation

import (
	"strconv"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
	"github.com/InterCooperative-Network/icn-agoranet/src/config"
	"github.com/InterCooperative-Network/icn-agoranet/src/keys"
	"github.com/InterCooperative-Network/icn-agoranet/src/net"
	"github.com/InterCooperative-Network/icn-agoranet/src/storage"
	"github.com/sirupsen/logrus"
)

// Federation assembles the transport, the sync engine and peer discovery
// behind a single lifecycle. Start brings the pieces up bottom to top, Stop
// takes them down in reverse, and the whole thing can be restarted.
type Federation struct {
	common.Lifecycle

	Config    *config.Config
	Transport net.Transport
	Store     storage.Store
	Engine    *SyncEngine
	Discovery *PeerDiscovery

	logger *logrus.Entry
}

// NewFederation returns an uninitialized Federation holding the config.
func NewFederation(conf *config.Config) *Federation {
	return &Federation{
		Config: conf,
	}
}

func (f *Federation) initStore() error {
	if f.Store != nil {
		return nil
	}

	if !f.Config.Store {
		f.Store = storage.NewInmemStore()

		f.logger.Debug("Created new in-mem store")

		return nil
	}

	f.logger.WithField("path", f.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := storage.LoadOrCreateBadgerStore(f.Config.DatabaseDir)
	if err != nil {
		return err
	}

	f.Store = store

	return nil
}

func (f *Federation) initTransport() error {
	if f.Transport != nil {
		return nil
	}

	key, err := keys.LoadOrCreateKey(f.Config.Keyfile())
	if err != nil {
		return err
	}

	f.Transport = net.NewP2PTransport(key, f.Config.ListenAddrs, f.logger)

	return nil
}

// Init builds the missing pieces from the config. A Transport or Store set
// before Init is kept, which is how the tests plug in in-memory
// implementations.
func (f *Federation) Init() error {
	f.logger = f.Config.Logger()

	if err := f.initStore(); err != nil {
		return err
	}

	if err := f.initTransport(); err != nil {
		return err
	}

	f.Engine = NewSyncEngine(f.Config, f.Transport, f.Store, f.logger)

	f.Discovery = NewPeerDiscovery(f.Config.BootstrapPeers, f.Config.DiscoveryInterval, f.Transport, f.logger)

	return nil
}

// Start brings up the transport, then the engine, then discovery, so every
// layer only ever talks to layers that are already running. Starting a
// running federation is a no-op.
func (f *Federation) Start() error {
	if !f.TransitionTo(common.Stopped, common.Running) {
		return nil
	}

	if err := f.Transport.Start(); err != nil {
		f.SetState(common.Stopped)
		return err
	}

	if err := f.Engine.Start(); err != nil {
		f.Transport.Stop()
		f.SetState(common.Stopped)
		return err
	}

	if err := f.Discovery.Start(); err != nil {
		f.Engine.Stop()
		f.Transport.Stop()
		f.SetState(common.Stopped)
		return err
	}

	f.logger.WithField("id", f.Transport.LocalID()).Info("Federation started")

	return nil
}

// Stop takes the layers down in reverse order. The store stays open, so the
// federation can be started again. Stopping a stopped federation is a no-op.
func (f *Federation) Stop() error {
	if f.GetState() != common.Running {
		return nil
	}

	f.Discovery.Stop()
	f.Engine.Stop()
	f.Transport.Stop()

	f.SetState(common.Stopped)

	f.logger.Info("Federation stopped")

	return nil
}

// KnownPeers returns the ids of the currently connected overlay peers.
func (f *Federation) KnownPeers() []string {
	return f.Transport.KnownPeers()
}

// CreateThread creates a local thread and announces it to the federation.
func (f *Federation) CreateThread(title string, proposalCID string) (*storage.Thread, error) {
	return f.Engine.CreateThread(title, proposalCID)
}

// LinkCredential attaches a credential to a thread and announces the link.
func (f *Federation) LinkCredential(threadID string, credentialCID string) (*storage.CredentialLink, error) {
	return f.Engine.LinkCredential(threadID, credentialCID)
}

// AnnounceThread re-broadcasts an already persisted thread.
func (f *Federation) AnnounceThread(threadID string) error {
	return f.Engine.AnnounceThread(threadID)
}

// AnnounceCredentialLink re-broadcasts an already persisted credential link.
func (f *Federation) AnnounceCredentialLink(threadID string, linkID string) error {
	return f.Engine.AnnounceCredentialLink(threadID, linkID)
}

// RequestSync asks the federation to replay a thread.
func (f *Federation) RequestSync(threadID string, lastUpdate int64) error {
	return f.Engine.RequestSync(threadID, lastUpdate)
}

// GetThread returns a thread from the local store.
func (f *Federation) GetThread(id string) (*storage.Thread, error) {
	return f.Store.GetThread(id)
}

// GetThreadLinks returns the credential links attached to a thread.
func (f *Federation) GetThreadLinks(threadID string) ([]*storage.CredentialLink, error) {
	return f.Store.GetLinksForThread(threadID)
}

// Stats returns a snapshot of the node's state for the ops service.
func (f *Federation) Stats() map[string]string {
	return map[string]string{
		"state":       f.GetState().String(),
		"moniker":     f.Config.Moniker,
		"did":         f.Config.NodeDID,
		"local_id":    f.Transport.LocalID(),
		"known_peers": strconv.Itoa(len(f.Transport.KnownPeers())),
	}
}
