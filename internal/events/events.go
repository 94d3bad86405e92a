// Package events publishes conversation transcripts to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xaenox/terrenos-bot/internal/models"
)

// SubjectPrefix is the prefix for all transcript subjects.
const SubjectPrefix = "chat"

// Publisher receives every turn appended to a session transcript.
type Publisher interface {
	PublishTurn(ctx context.Context, channel string, turn *models.Turn) error
}

// TurnEvent is the payload published for a turn.
type TurnEvent struct {
	Channel   string      `json:"channel"`
	SessionID string      `json:"session_id"`
	TurnID    string      `json:"turn_id"`
	Role      models.Role `json:"role"`
	Text      string      `json:"text"`
	Topic     string      `json:"topic,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Subject returns the subject a turn is published on:
// chat.<channel>.<session>.<role>.
func Subject(channel, sessionID string, role models.Role) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, token(channel), token(sessionID), token(string(role)))
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

type Config struct {
	URL   string
	Token string
	Name  string
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

type NATSPublisher struct {
	conn   conn
	logger *zap.Logger
}

// Connect dials NATS and returns a publisher. Reconnects are unlimited.
func Connect(cfg Config, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, logger: logger}, nil
}

func (p *NATSPublisher) PublishTurn(ctx context.Context, channel string, turn *models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(TurnEvent{
		Channel:   channel,
		SessionID: turn.SessionID,
		TurnID:    turn.ID,
		Role:      turn.Role,
		Text:      turn.Text,
		Topic:     string(turn.Topic),
		CreatedAt: turn.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	subject := Subject(channel, turn.SessionID, turn.Role)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug("Published turn", zap.String("subject", subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Noop drops every event. It is used when no NATS URL is configured.
type Noop struct{}

func (Noop) PublishTurn(context.Context, string, *models.Turn) error { return nil }
