package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
	"github.com/InterCooperative-Network/icn-agoranet/src/federation"
	"github.com/InterCooperative-Network/icn-agoranet/src/storage"
)

// Service exposes the federation node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	fed         *federation.Federation
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, fed *federation.Federation, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		fed:         fed,
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the DefaultServerMux of the
// http package. It is possible that another server in the same process is
// simultaneously using the DefaultServerMux. In which case, the handlers will
// be accessible from both servers. This is usefull when the federation is used
// in-memory and expected to use the same endpoint (address:port) as the
// application's API.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering AgoraNet API handlers")
	http.HandleFunc("/stats", s.makeHandler(s.GetStats))
	http.HandleFunc("/peers", s.makeHandler(s.GetPeers))
	http.HandleFunc("/threads", s.makeHandler(s.CreateThread))
	http.HandleFunc("/threads/", s.makeHandler(s.ThreadSubResource))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Serve calls ListenAndServe. This is a blocking call. It is not necessary to
// call Serve when the federation is used in-memory and another server has
// already been started with the DefaultServerMux and the same address:port
// combination. Indeed, the API handlers have already been registered when the
// service was instantiated.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving AgoraNet API")

	// Use the DefaultServerMux
	err := http.ListenAndServe(s.bindAddress, nil)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.fed.Stats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.fed.KnownPeers())
}

// CreateThread handles POST /threads.
func (s *Service) CreateThread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Title       string `json:"title"`
		ProposalCID string `json:"proposal_cid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	thread, err := s.fed.CreateThread(req.Title, req.ProposalCID)
	if err != nil {
		s.logger.WithError(err).Error("Creating thread")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(thread)
}

// ThreadSubResource dispatches /threads/{id}, /threads/{id}/announce,
// /threads/{id}/links, /threads/{id}/links/{linkID}/announce and
// /threads/{id}/sync.
func (s *Service) ThreadSubResource(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/threads/"):]

	parts := strings.Split(param, "/")
	threadID := parts[0]
	if threadID == "" {
		http.Error(w, "missing thread id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		s.getThread(w, r, threadID)
	case len(parts) == 2 && parts[1] == "announce":
		s.announceThread(w, r, threadID)
	case len(parts) == 2 && parts[1] == "links":
		s.linkCredential(w, r, threadID)
	case len(parts) == 4 && parts[1] == "links" && parts[3] == "announce":
		s.announceCredentialLink(w, r, threadID, parts[2])
	case len(parts) == 2 && parts[1] == "sync":
		s.requestSync(w, r, threadID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) announceThread(w http.ResponseWriter, r *http.Request, threadID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := s.fed.AnnounceThread(threadID)
	if common.IsStore(err, common.KeyNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.WithError(err).Errorf("Announcing thread %s", threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) announceCredentialLink(w http.ResponseWriter, r *http.Request, threadID, linkID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := s.fed.AnnounceCredentialLink(threadID, linkID)
	if common.IsStore(err, common.KeyNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.WithError(err).Errorf("Announcing link %s on thread %s", linkID, threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) getThread(w http.ResponseWriter, r *http.Request, threadID string) {
	thread, err := s.fed.GetThread(threadID)
	if common.IsStore(err, common.KeyNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.WithError(err).Errorf("Retrieving thread %s", threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	links, err := s.fed.GetThreadLinks(threadID)
	if err != nil {
		s.logger.WithError(err).Errorf("Retrieving links for thread %s", threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	res := struct {
		Thread *storage.Thread           `json:"thread"`
		Links  []*storage.CredentialLink `json:"links"`
	}{
		Thread: thread,
		Links:  links,
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(res)
}

func (s *Service) linkCredential(w http.ResponseWriter, r *http.Request, threadID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CredentialCID string `json:"credential_cid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	link, err := s.fed.LinkCredential(threadID, req.CredentialCID)
	if common.IsStore(err, common.KeyNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.WithError(err).Errorf("Linking credential to thread %s", threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(link)
}

func (s *Service) requestSync(w http.ResponseWriter, r *http.Request, threadID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		LastUpdate int64 `json:"last_update"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := s.fed.RequestSync(threadID, req.LastUpdate); err != nil {
		s.logger.WithError(err).Errorf("Requesting sync for thread %s", threadID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
