package storage

import (
	"context"
	"errors"

	"github.com/xaenox/terrenos-bot/internal/models"
)

var ErrNotFound = errors.New("not found")

// Storage persists chat sessions, their transcripts and captured leads.
type Storage interface {
	SessionStorage
	LeadStorage
	Ping(ctx context.Context) error
	Close() error
}

type SessionStorage interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// FindSession looks a session up by the id the channel uses for it,
	// e.g. a Telegram chat id.
	FindSession(ctx context.Context, channel, externalID string) (*models.Session, error)
	// FindOrCreateSession atomically returns the session bound to
	// session.Channel and session.ExternalID, storing session when there is
	// none yet. The bool reports whether session was stored.
	FindOrCreateSession(ctx context.Context, session *models.Session) (*models.Session, bool, error)
	TouchSession(ctx context.Context, id string) error

	AppendTurn(ctx context.Context, turn *models.Turn) error
	// ListTurns returns the latest limit turns of a session, oldest first.
	// A limit <= 0 returns the whole transcript.
	ListTurns(ctx context.Context, sessionID string, limit int) ([]*models.Turn, error)
}

type LeadStorage interface {
	SaveLead(ctx context.Context, lead *models.Lead) error
	// ListLeads returns leads newest first.
	ListLeads(ctx context.Context, limit int) ([]*models.Lead, error)
}
