package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/xaenox/terrenos-bot/internal/models"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStorage{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestPostgresStorage_Migrate(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS chat_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_Sessions(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs("s1", "web", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM chat_sessions WHERE id = ").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "external_id", "created_at", "last_used_at"}).
			AddRow("s1", "web", "", now, now))
	mock.ExpectQuery("FROM chat_sessions WHERE id = ").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "external_id", "created_at", "last_used_at"}))
	mock.ExpectExec("UPDATE chat_sessions SET last_used_at").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.CreateSession(ctx, &models.Session{ID: "s1", Channel: "web"}); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ID != "s1" || got.Channel != "web" {
		t.Errorf("GetSession() = %+v", got)
	}
	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
	if err := s.TouchSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchSession() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_AppendTurn(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)

	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs("t1", "s1", "user", "hola", "greeting", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO conversation_turns").
		WillReturnError(&pq.Error{Code: foreignKeyViolation})

	turn := &models.Turn{ID: "t1", SessionID: "s1", Role: models.RoleUser, Text: "hola", Topic: models.TopicGreeting}
	if err := s.AppendTurn(ctx, turn); err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("AppendTurn() should stamp CreatedAt")
	}

	err := s.AppendTurn(ctx, &models.Turn{ID: "t2", SessionID: "gone", Role: models.RoleUser})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendTurn() error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_FindOrCreateSession(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)
	now := time.Now()
	insert := regexp.QuoteMeta("ON CONFLICT (channel, external_id) WHERE external_id <> '' DO NOTHING")

	mock.ExpectExec(insert).
		WithArgs("s1", "telegram", "42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("s2", "telegram", "42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM chat_sessions\\s+WHERE channel = \\$1 AND external_id = \\$2").
		WithArgs("telegram", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "external_id", "created_at", "last_used_at"}).
			AddRow("s1", "telegram", "42", now, now))

	first, created, err := s.FindOrCreateSession(ctx, &models.Session{ID: "s1", Channel: "telegram", ExternalID: "42"})
	if err != nil || !created || first.ID != "s1" {
		t.Fatalf("FindOrCreateSession() = %+v, %v, %v", first, created, err)
	}

	second, created, err := s.FindOrCreateSession(ctx, &models.Session{ID: "s2", Channel: "telegram", ExternalID: "42"})
	if err != nil {
		t.Fatalf("FindOrCreateSession() error = %v", err)
	}
	if created || second.ID != "s1" {
		t.Errorf("conflicting insert = %+v, created %v, want existing s1", second, created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_ListTurns(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)
	now := time.Now()

	cols := []string{"id", "session_id", "role", "content", "topic", "created_at"}
	mock.ExpectQuery(`(?s)SELECT \* FROM \(.*ORDER BY created_at DESC, id DESC.*ORDER BY created_at ASC, id ASC`).
		WithArgs("s1", 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("t1", "s1", "user", "precios", "pricing", now).
			AddRow("t2", "s1", "assistant", "Nuestros precios", "pricing", now))
	mock.ExpectQuery("FROM conversation_turns\\s+WHERE session_id = \\$1\\s+ORDER BY created_at ASC, id ASC").
		WithArgs("s2").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery("FROM chat_sessions WHERE id = ").
		WithArgs("s2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "external_id", "created_at", "last_used_at"}))

	turns, err := s.ListTurns(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(turns) != 2 || turns[1].Role != models.RoleAssistant || turns[0].Topic != models.TopicPricing {
		t.Errorf("ListTurns() = %+v", turns)
	}

	if _, err := s.ListTurns(ctx, "s2", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListTurns() on unknown session error = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_Leads(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO leads").
		WithArgs("l1", "s1", "Ana", "ana@example.com", "", "terreno1", "", "chatbot", "new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM leads\\s+ORDER BY created_at DESC LIMIT").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "name", "email", "phone", "property_interest", "message", "source", "status", "created_at"}).
			AddRow("l1", "s1", "Ana", "ana@example.com", "", "terreno1", "", "chatbot", "new", now))

	lead := &models.Lead{
		ID:               "l1",
		SessionID:        "s1",
		Name:             "Ana",
		Email:            "ana@example.com",
		PropertyInterest: "terreno1",
		Source:           "chatbot",
		Status:           models.LeadNew,
	}
	if err := s.SaveLead(ctx, lead); err != nil {
		t.Fatalf("SaveLead() error = %v", err)
	}

	leads, err := s.ListLeads(ctx, 10)
	if err != nil {
		t.Fatalf("ListLeads() error = %v", err)
	}
	if len(leads) != 1 || leads[0].Status != models.LeadNew {
		t.Errorf("ListLeads() = %+v", leads)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStorage_ListTerrains(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStorage(t)

	cols := []string{"id", "name", "price", "currency", "size", "location", "category", "features", "badge", "description"}
	mock.ExpectQuery("FROM terrains WHERE enabled = TRUE ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("t-1", "Lote Sur", 1530000.0, "MXN", "1,200 m²", "Zona Sur", "residential", "{Agua,Luz}", nil, "Amplio").
			AddRow("t-2", "Bodega", 2160000.0, "MXN", "800", "Parque", "industrial", "{}", "Oferta", nil))
	mock.ExpectQuery("FROM terrains ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(cols))

	listings, err := s.ListTerrains(ctx, true)
	if err != nil {
		t.Fatalf("ListTerrains() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("ListTerrains() returned %d listings", len(listings))
	}

	first := listings[0]
	if first.Area.Value != 1200 || first.Area.Unit != "m²" {
		t.Errorf("Area = %+v", first.Area)
	}
	if len(first.Features) != 2 || first.Features[1] != "Luz" {
		t.Errorf("Features = %v", first.Features)
	}
	if first.Badge != "" || first.Description != "Amplio" {
		t.Errorf("Badge/Description = %q/%q", first.Badge, first.Description)
	}
	if listings[1].Badge != "Oferta" || listings[1].Category != models.CategoryIndustrial {
		t.Errorf("second listing = %+v", listings[1])
	}

	if _, err := s.ListTerrains(ctx, false); err != nil {
		t.Fatalf("ListTerrains(false) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want models.Area
	}{
		{"500 m²", models.Area{Value: 500, Unit: "m²"}},
		{"1,200m2", models.Area{Value: 1200, Unit: "m2"}},
		{"2.5 ha", models.Area{Value: 2.5, Unit: "ha"}},
		{"800", models.Area{Value: 800, Unit: "m²"}},
		{"", models.Area{Unit: "m²"}},
	}
	for _, tt := range tests {
		if got := parseSize(tt.in); got != tt.want {
			t.Errorf("parseSize(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "terrenos", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=terrenos sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q", got)
	}

	cfg.URL = "postgres://u:p@db/terrenos"
	if got := cfg.DSN(); got != cfg.URL {
		t.Errorf("DSN() = %q, want URL", got)
	}
}
