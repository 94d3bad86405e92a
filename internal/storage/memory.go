package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/terrenos-bot/internal/models"
)

type MemoryStorage struct {
	mu         sync.RWMutex
	sessions   map[string]*models.Session
	byExternal map[string]string
	turns      map[string][]*models.Turn
	leads      []*models.Lead
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions:   make(map[string]*models.Session),
		byExternal: make(map[string]string),
		turns:      make(map[string][]*models.Turn),
	}
}

func externalKey(channel, externalID string) string {
	return channel + "\x00" + externalID
}

// Session methods
func (s *MemoryStorage) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	stored := *session
	s.sessions[session.ID] = &stored
	if session.ExternalID != "" {
		s.byExternal[externalKey(session.Channel, session.ExternalID)] = session.ID
	}
	return nil
}

func (s *MemoryStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *session
	return &out, nil
}

func (s *MemoryStorage) FindSession(ctx context.Context, channel, externalID string) (*models.Session, error) {
	s.mu.RLock()
	id, exists := s.byExternal[externalKey(channel, externalID)]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	return s.GetSession(ctx, id)
}

func (s *MemoryStorage) FindOrCreateSession(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := externalKey(session.Channel, session.ExternalID)
	if id, exists := s.byExternal[key]; exists && session.ExternalID != "" {
		out := *s.sessions[id]
		return &out, false, nil
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	stored := *session
	s.sessions[session.ID] = &stored
	if session.ExternalID != "" {
		s.byExternal[key] = session.ID
	}
	out := stored
	return &out, true, nil
}

func (s *MemoryStorage) TouchSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}
	session.LastUsedAt = time.Now()
	return nil
}

// Turn methods
func (s *MemoryStorage) AppendTurn(ctx context.Context, turn *models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[turn.SessionID]; !exists {
		return ErrNotFound
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	stored := *turn
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], &stored)
	return nil
}

func (s *MemoryStorage) ListTurns(ctx context.Context, sessionID string, limit int) ([]*models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return nil, ErrNotFound
	}

	turns := s.turns[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]*models.Turn, len(turns))
	for i, t := range turns {
		turn := *t
		out[i] = &turn
	}
	return out, nil
}

// Lead methods
func (s *MemoryStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	stored := *lead
	s.leads = append(s.leads, &stored)
	return nil
}

func (s *MemoryStorage) ListLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Lead, len(s.leads))
	for i, l := range s.leads {
		lead := *l
		out[i] = &lead
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
