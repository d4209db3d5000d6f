package session

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/helper"
	"document-assistant/internal/models"
	"document-assistant/internal/rag"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one user's document and interaction history.
type Session struct {
	ID      string
	Index   *rag.Index
	Created time.Time

	mu      sync.Mutex
	history []models.HistoryEntry
}

func (s *Session) LoadDocument(ctx context.Context, text string) error {
	return s.Index.Load(ctx, text)
}

// Record appends an answered action to the history.
func (s *Session) Record(entry models.HistoryEntry) {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()
}

// History returns the entries oldest first.
func (s *Session) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryEntry(nil), s.history...)
}

// Store keeps the most recently used sessions. Evicted sessions release
// their index.
type Store struct {
	newIndex func() *rag.Index
	sessions *lru.Cache[string, *Session]
}

func NewStore(maxSessions int, newIndex func() *rag.Index) (*Store, error) {
	if maxSessions <= 0 {
		maxSessions = 100
	}
	sessions, err := lru.NewWithEvict(maxSessions, func(id string, s *Session) {
		log.Debug().Str("session", id).Msg("Session released")
		s.Index.Close(context.Background())
	})
	if err != nil {
		return nil, err
	}
	return &Store{newIndex: newIndex, sessions: sessions}, nil
}

func (st *Store) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := &Session{ID: id, Index: st.newIndex(), Created: time.Now()}
	st.sessions.Add(id, s)
	log.Info().Str("session", id).Msg("Session created")
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	if !st.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

func (st *Store) Len() int { return st.sessions.Len() }
