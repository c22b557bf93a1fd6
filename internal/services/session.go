package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/bag-of-holding/backend/internal/metrics"
	"github.com/codyseavey/bag-of-holding/backend/internal/models"
)

var (
	ErrNoDataLoaded    = errors.New("no Helvault data loaded")
	ErrSessionNotFound = errors.New("session not found")
)

// LatestSessionID selects the most recently loaded session
const LatestSessionID = "latest"

// Session is one imported export. It is immutable once created and is
// passed explicitly to every query.
type Session struct {
	ID       string    `json:"id"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
	Snapshot
}

func NewSession(source string, snapshot *Snapshot) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Source:   source,
		LoadedAt: time.Now(),
		Snapshot: *snapshot,
	}
}

// Summary returns the import response for the session
func (s *Session) Summary() models.ImportSummary {
	return models.ImportSummary{
		SessionID:     s.ID,
		Source:        s.Source,
		InventoryRows: s.Inventory,
		Aggregates:    s.Aggregates,
		Collections:   len(s.Collections),
		Cards:         len(s.Cards),
		SkippedRows:   s.Skipped,
	}
}

// SessionInfo is the listing view of a session
type SessionInfo struct {
	ID            string    `json:"id"`
	Source        string    `json:"source,omitempty"`
	LoadedAt      time.Time `json:"loaded_at"`
	Collections   int       `json:"collections"`
	Cards         int       `json:"cards"`
	InventoryRows int       `json:"inventory_rows"`
}

func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:            s.ID,
		Source:        s.Source,
		LoadedAt:      s.LoadedAt,
		Collections:   len(s.Collections),
		Cards:         len(s.Cards),
		InventoryRows: len(s.Inventory),
	}
}

// Match runs the matching engine against the session's inventory
func (s *Session) Match(entries []models.DeckListEntry) []models.MatchResult {
	results := ComputeMatches(entries, s.Inventory, s.Cards, s.Collections)

	metrics.MatchRequestsTotal.Inc()
	for _, r := range results {
		metrics.CardsRequested.Add(float64(r.Entry.Qty))
		metrics.CardsMissing.Add(float64(r.Missing))
	}
	return results
}

// SessionStore keeps the most recently used sessions in memory
type SessionStore struct {
	cache *lru.Cache[string, *Session]

	mu       sync.RWMutex
	latestID string
}

func NewSessionStore(size int) (*SessionStore, error) {
	cache, err := lru.NewWithEvict[string, *Session](size, func(id string, _ *Session) {
		metrics.SessionsLoaded.Dec()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &SessionStore{cache: cache}, nil
}

// Put stores a session and makes it the latest
func (s *SessionStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.Contains(session.ID) {
		metrics.SessionsLoaded.Inc()
	}
	s.cache.Add(session.ID, session)
	s.latestID = session.ID
}

// Get returns a session by id. An empty id or LatestSessionID selects the
// latest session.
func (s *SessionStore) Get(id string) (*Session, error) {
	if id == "" || id == LatestSessionID {
		return s.Latest()
	}
	session, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Latest returns the most recently loaded session still in the store
func (s *SessionStore) Latest() (*Session, error) {
	s.mu.RLock()
	latestID := s.latestID
	s.mu.RUnlock()

	if latestID == "" {
		return nil, ErrNoDataLoaded
	}
	session, ok := s.cache.Get(latestID)
	if !ok {
		return nil, ErrNoDataLoaded
	}
	return session, nil
}

// List returns session infos, newest first
func (s *SessionStore) List() []SessionInfo {
	sessions := s.cache.Values()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LoadedAt.After(sessions[j].LoadedAt)
	})

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}
	return infos
}

func (s *SessionStore) Len() int {
	return s.cache.Len()
}
