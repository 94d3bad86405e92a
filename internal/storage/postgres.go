package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xaenox/terrenos-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

// pq error code for foreign_key_violation.
const foreignKeyViolation = "23503"

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	UseInMemory  bool
}

// DSN returns URL when set and a key/value connection string otherwise.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db *sqlx.DB
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig) (*PostgresStorage, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &PostgresStorage{db: db}
	if err := storage.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

const sessionColumns = `id, channel, external_id, created_at, last_used_at`

func (s *PostgresStorage) CreateSession(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	query := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES (:id, :channel, :external_id, :created_at, :last_used_at)`

	if _, err := s.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return &session, nil
}

func (s *PostgresStorage) FindSession(ctx context.Context, channel, externalID string) (*models.Session, error) {
	var session models.Session
	err := s.db.GetContext(ctx, &session, `
		SELECT `+sessionColumns+`
		FROM chat_sessions
		WHERE channel = $1 AND external_id = $2
		ORDER BY last_used_at DESC
		LIMIT 1`, channel, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding session: %w", err)
	}
	return &session, nil
}

// FindOrCreateSession relies on the partial unique index over
// (channel, external_id): a losing concurrent insert reads the winner's row.
func (s *PostgresStorage) FindOrCreateSession(ctx context.Context, session *models.Session) (*models.Session, bool, error) {
	if session.ExternalID == "" {
		if err := s.CreateSession(ctx, session); err != nil {
			return nil, false, err
		}
		out := *session
		return &out, true, nil
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastUsedAt = now

	query := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES (:id, :channel, :external_id, :created_at, :last_used_at)
		ON CONFLICT (channel, external_id) WHERE external_id <> '' DO NOTHING`

	result, err := s.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return nil, false, fmt.Errorf("error creating session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 1 {
		out := *session
		return &out, true, nil
	}

	existing, err := s.FindSession(ctx, session.Channel, session.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *PostgresStorage) TouchSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) AppendTurn(ctx context.Context, turn *models.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO conversation_turns (id, session_id, role, content, topic, created_at)
		VALUES (:id, :session_id, :role, :content, :topic, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, turn); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("error appending turn: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListTurns(ctx context.Context, sessionID string, limit int) ([]*models.Turn, error) {
	var (
		turns []*models.Turn
		err   error
	)
	if limit > 0 {
		err = s.db.SelectContext(ctx, &turns, `
			SELECT * FROM (
				SELECT id, session_id, role, content, topic, created_at
				FROM conversation_turns
				WHERE session_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			) latest
			ORDER BY created_at ASC, id ASC`, sessionID, limit)
	} else {
		err = s.db.SelectContext(ctx, &turns, `
			SELECT id, session_id, role, content, topic, created_at
			FROM conversation_turns
			WHERE session_id = $1
			ORDER BY created_at ASC, id ASC`, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying turns: %w", err)
	}

	if len(turns) == 0 {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return turns, nil
}

func (s *PostgresStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO leads (id, session_id, name, email, phone, property_interest, message, source, status, created_at)
		VALUES (:id, :session_id, :name, :email, :phone, :property_interest, :message, :source, :status, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("error saving lead: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListLeads(ctx context.Context, limit int) ([]*models.Lead, error) {
	query := `
		SELECT id, session_id, name, email, phone, property_interest, message, source, status, created_at
		FROM leads
		ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var leads []*models.Lead
	if err := s.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, fmt.Errorf("error querying leads: %w", err)
	}
	return leads, nil
}

type terrainRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Price       float64        `db:"price"`
	Currency    string         `db:"currency"`
	Size        string         `db:"size"`
	Location    string         `db:"location"`
	Category    string         `db:"category"`
	Features    pq.StringArray `db:"features"`
	Badge       sql.NullString `db:"badge"`
	Description sql.NullString `db:"description"`
}

func (r terrainRow) listing() models.Listing {
	return models.Listing{
		ID:          r.ID,
		Name:        r.Name,
		Price:       models.Price{Amount: r.Price, Currency: r.Currency},
		Area:        parseSize(r.Size),
		Location:    r.Location,
		Category:    models.Category(r.Category),
		Features:    []string(r.Features),
		Badge:       r.Badge.String,
		Description: r.Description.String,
	}
}

// ListTerrains reads listings from the terrains table, newest first.
func (s *PostgresStorage) ListTerrains(ctx context.Context, enabledOnly bool) ([]models.Listing, error) {
	query := `
		SELECT id, name, price, currency, size, location, category, features, badge, description
		FROM terrains`
	if enabledOnly {
		query += ` WHERE enabled = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	var rows []terrainRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("error querying terrains: %w", err)
	}

	listings := make([]models.Listing, len(rows))
	for i, r := range rows {
		listings[i] = r.listing()
	}
	return listings, nil
}

// parseSize reads free-text sizes such as "500 m²" or "1,200m2". The unit
// defaults to m².
func parseSize(size string) models.Area {
	size = strings.TrimSpace(size)
	i := strings.IndexFunc(size, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != ','
	})
	if i < 0 {
		i = len(size)
	}

	area := models.Area{Unit: strings.TrimSpace(size[i:])}
	if area.Unit == "" {
		area.Unit = "m²"
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(size[:i], ",", ""), 64); err == nil {
		area.Value = v
	}
	return area
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
