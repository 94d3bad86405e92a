// Package service runs chat sessions on top of the responder: it keeps the
// transcript, captures leads and publishes every turn.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/events"
	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/responder"
	"github.com/xaenox/terrenos-bot/internal/storage"
	"github.com/xaenox/terrenos-bot/pkg/metrics"
)

var ErrInvalidLead = errors.New("invalid lead")

// TopicAssist labels input the keyword rules could not place.
type TopicAssist interface {
	Topic(ctx context.Context, text string) (models.Topic, error)
}

type ChatService struct {
	responder     *responder.Responder
	store         storage.Storage
	publisher     events.Publisher
	assist        TopicAssist
	assistTimeout time.Duration
	logger        *zap.Logger
}

type Option func(*ChatService)

func WithPublisher(p events.Publisher) Option {
	return func(s *ChatService) {
		s.publisher = p
	}
}

// WithAssist enables the LLM topic assist for input that would otherwise get
// a fallback reply.
func WithAssist(a TopicAssist, timeout time.Duration) Option {
	return func(s *ChatService) {
		s.assist = a
		if timeout > 0 {
			s.assistTimeout = timeout
		}
	}
}

func NewChatService(r *responder.Responder, store storage.Storage, logger *zap.Logger, opts ...Option) *ChatService {
	s := &ChatService{
		responder:     r,
		store:         store,
		publisher:     events.Noop{},
		assistTimeout: 5 * time.Second,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KnowledgeBase returns the catalogue replies are rendered from.
func (s *ChatService) KnowledgeBase() *models.KnowledgeBase {
	return s.responder.KnowledgeBase()
}

// StartSession opens a session and records the welcome message as its first
// turn.
func (s *ChatService) StartSession(ctx context.Context, channel, externalID string) (*models.Session, *models.Turn, error) {
	session := s.newSession(channel, externalID)
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	welcome, err := s.welcome(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	return session, welcome, nil
}

// SessionFor returns the session bound to a channel-specific id, opening one
// on first contact. The bool reports whether the session is new; concurrent
// first contacts share one session and only one of them sees true.
func (s *ChatService) SessionFor(ctx context.Context, channel, externalID string) (*models.Session, bool, error) {
	session, created, err := s.store.FindOrCreateSession(ctx, s.newSession(channel, externalID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to find session: %w", err)
	}
	if created {
		if _, err := s.welcome(ctx, session); err != nil {
			return nil, false, err
		}
	}
	return session, created, nil
}

func (s *ChatService) newSession(channel, externalID string) *models.Session {
	return &models.Session{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Channel:    channel,
		ExternalID: externalID,
	}
}

func (s *ChatService) welcome(ctx context.Context, session *models.Session) (*models.Turn, error) {
	metrics.RecordSession(session.Channel)

	turn := s.newTurn(session.ID, models.RoleAssistant, s.responder.Welcome(), "")
	if err := s.appendTurn(ctx, session, turn); err != nil {
		return nil, err
	}

	s.logger.Info("Session started",
		zap.String("session_id", session.ID),
		zap.String("channel", session.Channel))
	return turn, nil
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// Send answers one user message and appends both turns to the transcript.
func (s *ChatService) Send(ctx context.Context, sessionID, text string) (*models.Reply, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply := s.responder.Respond(text)
	if reply.Topic == models.TopicFallback && s.assist != nil {
		reply = s.assisted(ctx, text, reply)
	}

	if err := s.appendTurn(ctx, session, s.newTurn(session.ID, models.RoleUser, text, reply.Topic)); err != nil {
		return nil, err
	}
	if err := s.appendTurn(ctx, session, s.newTurn(session.ID, models.RoleAssistant, reply.Text, reply.Topic)); err != nil {
		return nil, err
	}
	if err := s.store.TouchSession(ctx, session.ID); err != nil {
		s.logger.Warn("Failed to touch session", zap.String("session_id", session.ID), zap.Error(err))
	}

	metrics.RecordReply(session.Channel, string(reply.Topic))
	s.logger.Debug("Reply sent",
		zap.String("session_id", session.ID),
		zap.String("topic", string(reply.Topic)),
		zap.String("category", string(reply.Category)))

	return &reply, nil
}

// Quick renders a topic without classifying any input, as the quick action
// buttons do. Both turns are recorded.
func (s *ChatService) Quick(ctx context.Context, sessionID string, topic models.Topic, label string) (*models.Reply, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply := s.responder.Reply(topic, "")
	if err := s.appendTurn(ctx, session, s.newTurn(session.ID, models.RoleUser, label, reply.Topic)); err != nil {
		return nil, err
	}
	if err := s.appendTurn(ctx, session, s.newTurn(session.ID, models.RoleAssistant, reply.Text, reply.Topic)); err != nil {
		return nil, err
	}
	metrics.RecordReply(session.Channel, string(reply.Topic))
	return &reply, nil
}

func (s *ChatService) assisted(ctx context.Context, text string, fallback models.Reply) models.Reply {
	ctx, cancel := context.WithTimeout(ctx, s.assistTimeout)
	defer cancel()

	start := time.Now()
	topic, err := s.assist.Topic(ctx, text)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		metrics.RecordAssist("error", elapsed)
		s.logger.Warn("Topic assist failed", zap.Error(err))
		return fallback
	case topic == models.TopicFallback || topic == "":
		metrics.RecordAssist("fallback", elapsed)
		return fallback
	}

	metrics.RecordAssist("matched", elapsed)
	return s.responder.Reply(topic, "")
}

// History returns the latest limit turns of a session, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID string, limit int) ([]*models.Turn, error) {
	return s.store.ListTurns(ctx, sessionID, limit)
}

// SaveLead validates and stores contact details left by a visitor.
func (s *ChatService) SaveLead(ctx context.Context, lead *models.Lead) error {
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.TrimSpace(lead.Email)
	if lead.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLead)
	}
	if lead.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidLead)
	}
	if addr, err := mail.ParseAddress(lead.Email); err != nil || addr.Address != lead.Email {
		return fmt.Errorf("%w: malformed email", ErrInvalidLead)
	}
	if lead.PropertyInterest != "" {
		if _, ok := s.KnowledgeBase().ListingByID(lead.PropertyInterest); !ok {
			return fmt.Errorf("%w: unknown listing %q", ErrInvalidLead, lead.PropertyInterest)
		}
	}

	lead.ID = uuid.Must(uuid.NewV7()).String()
	if lead.Source == "" {
		lead.Source = "chatbot"
	}
	lead.Status = models.LeadNew

	if err := s.store.SaveLead(ctx, lead); err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	metrics.RecordLead(lead.Source)

	s.logger.Info("Lead captured",
		zap.String("lead_id", lead.ID),
		zap.String("source", lead.Source))
	return nil
}

func (s *ChatService) Leads(ctx context.Context, limit int) ([]*models.Lead, error) {
	return s.store.ListLeads(ctx, limit)
}

func (s *ChatService) newTurn(sessionID string, role models.Role, text string, topic models.Topic) *models.Turn {
	return &models.Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}
}

// appendTurn stores a turn and publishes it. Publishing is best effort.
func (s *ChatService) appendTurn(ctx context.Context, session *models.Session, turn *models.Turn) error {
	if err := s.store.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if err := s.publisher.PublishTurn(ctx, session.Channel, turn); err != nil {
		metrics.RecordPublishFailure()
		s.logger.Warn("Failed to publish turn",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
	return nil
}
