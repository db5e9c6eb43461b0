package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	cm "github.com/InterCooperative-Network/icn-agoranet/src/common"
)

// InmemStore keeps threads and credential links in maps. It backs nodes run
// without persistence, and the tests.
type InmemStore struct {
	sync.RWMutex

	threads       map[string]*Thread
	linksByThread map[string][]*CredentialLink
	linkIndex     map[string]*CredentialLink
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		threads:       make(map[string]*Thread),
		linksByThread: make(map[string][]*CredentialLink),
		linkIndex:     make(map[string]*CredentialLink),
	}
}

// GetThread implements ThreadRepository.
func (s *InmemStore) GetThread(id string) (*Thread, error) {
	s.RLock()
	defer s.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, cm.NewStoreErr("Thread", cm.KeyNotFound, id)
	}

	res := *t
	return &res, nil
}

// CreateThread implements ThreadRepository.
func (s *InmemStore) CreateThread(t *Thread) (*Thread, error) {
	s.Lock()
	defer s.Unlock()

	res := *t
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt == 0 {
		res.CreatedAt = time.Now().Unix()
	}

	if _, ok := s.threads[res.ID]; ok {
		return nil, cm.NewStoreErr("Thread", cm.KeyAlreadyExists, res.ID)
	}

	s.threads[res.ID] = &res

	out := res
	return &out, nil
}

// GetLinksForThread implements CredentialLinkRepository.
func (s *InmemStore) GetLinksForThread(threadID string) ([]*CredentialLink, error) {
	s.RLock()
	defer s.RUnlock()

	links := s.linksByThread[threadID]
	res := make([]*CredentialLink, len(links))
	for i, l := range links {
		c := *l
		res[i] = &c
	}
	return res, nil
}

// CreateCredentialLink implements CredentialLinkRepository.
func (s *InmemStore) CreateCredentialLink(l *CredentialLink) (*CredentialLink, error) {
	s.Lock()
	defer s.Unlock()

	key := linkDedupKey(l.ThreadID, l.CredentialCID, l.LinkedBy)
	if existing, ok := s.linkIndex[key]; ok {
		res := *existing
		return &res, cm.NewStoreErr("CredentialLink", cm.KeyAlreadyExists, key)
	}

	res := *l
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt == 0 {
		res.CreatedAt = time.Now().Unix()
	}

	stored := res
	s.linksByThread[stored.ThreadID] = append(s.linksByThread[stored.ThreadID], &stored)
	s.linkIndex[key] = &stored

	out := stored
	return &out, nil
}

// Close implements Store.
func (s *InmemStore) Close() error {
	return nil
}
