package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const ProviderGemini = "gemini"

// Source supplies and stores the API key for the remote generation service.
type Source interface {
	APIKey(ctx context.Context) (string, error)
	SetAPIKey(ctx context.Context, key string) error
}

// MemorySource keeps the API key in process memory. It is the default source
// when no database is configured; the key is seeded from the environment and
// lost on restart.
type MemorySource struct {
	mu  sync.RWMutex
	key string
}

// NewMemorySource returns a MemorySource seeded with the given key.
func NewMemorySource(seed string) *MemorySource {
	return &MemorySource{key: strings.TrimSpace(seed)}
}

func (s *MemorySource) APIKey(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, nil
}

func (s *MemorySource) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: api key is required")
	}
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

// SQLExecutor is the subset of pgxpool.Pool the Postgres source needs.
type SQLExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	qEnsureTokensTable = `CREATE TABLE IF NOT EXISTS integration_tokens (
		provider    TEXT PRIMARY KEY,
		token       TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	qSelectToken = `SELECT token FROM integration_tokens WHERE provider = $1`
	qUpsertToken = `INSERT INTO integration_tokens (provider, token, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`
)

// PGSource persists the API key in Postgres so it survives restarts and can be
// seeded out-of-band with cmd/apikey.
type PGSource struct {
	sql      SQLExecutor
	provider string
}

// NewPGSource returns a Postgres-backed source for the given executor.
func NewPGSource(sql SQLExecutor) *PGSource {
	return &PGSource{sql: sql, provider: ProviderGemini}
}

// EnsureSchema creates the integration-token table when it does not exist.
func (s *PGSource) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, qEnsureTokensTable)
	return err
}

func (s *PGSource) APIKey(ctx context.Context) (string, error) {
	row := s.sql.QueryRow(ctx, qSelectToken, s.provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *PGSource) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: api key is required")
	}
	_, err := s.sql.Exec(ctx, qUpsertToken, s.provider, key)
	return err
}

var (
	_ Source = (*MemorySource)(nil)
	_ Source = (*PGSource)(nil)
)
