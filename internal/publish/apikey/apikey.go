// Package apikey issues and validates the API keys that guard index
// publishing and the other write routes of the search service. Raw keys are
// generated with crypto/rand and only their SHA-256 digest is stored. A key
// may be scoped to a single collection.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

// KeyInfo holds metadata about a validated API key. An empty Collection
// grants access to every collection.
type KeyInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Collection string     `json:"collection,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Allows reports whether the key may modify collection. Requests that are
// not about one collection need an unscoped key.
func (k *KeyInfo) Allows(collection string) bool {
	return k.Collection == "" || k.Collection == collection
}

// Validator resolves a raw key to its metadata.
type Validator interface {
	Validate(ctx context.Context, rawKey string) (*KeyInfo, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS api_keys (
	id          BIGSERIAL PRIMARY KEY,
	key_hash    TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	collection  TEXT NOT NULL DEFAULT '',
	is_active   BOOLEAN NOT NULL DEFAULT true,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ
)`

// Store keeps keys in the api_keys table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "apikey-store"),
	}
}

// EnsureSchema creates the api_keys table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating api_keys table: %w", err)
	}
	return nil
}

// Validate checks a raw API key against the database.
func (s *Store) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	var info KeyInfo
	var expiresAt sql.NullTime
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, collection, created_at, expires_at
		 FROM api_keys
		 WHERE key_hash = $1 AND is_active = true`,
		HashKey(rawKey),
	).Scan(&info.ID, &info.Name, &info.Collection, &info.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if expiresAt.Valid {
		if expiresAt.Time.Before(time.Now()) {
			return nil, ErrExpiredKey
		}
		info.ExpiresAt = &expiresAt.Time
	}
	return &info, nil
}

// CreateKey stores a new key and returns the raw value. It cannot be
// retrieved again.
func (s *Store) CreateKey(ctx context.Context, name, collection string, expiresAt *time.Time) (string, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return "", err
	}
	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, name, collection, expires_at) VALUES ($1, $2, $3, $4)`,
		HashKey(rawKey), name, collection, expiry,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	s.logger.Info("api key created", "name", name, "collection", collection)
	return rawKey, nil
}

// RevokeKey deactivates the key with the given id.
func (s *Store) RevokeKey(ctx context.Context, id string) error {
	result, err := s.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}
	s.logger.Info("api key revoked", "id", id)
	return nil
}

// ListKeys returns every active key, newest first.
func (s *Store) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, name, collection, created_at, expires_at
		 FROM api_keys WHERE is_active = true ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	keys := []KeyInfo{}
	for rows.Next() {
		var k KeyInfo
		var expiresAt sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.Collection, &k.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Static validates a fixed set of unscoped keys, typically from the config
// file or environment.
type Static struct {
	keys map[string]*KeyInfo
}

// NewStatic hashes keys up front; the raw values are not retained.
func NewStatic(keys []string) *Static {
	s := &Static{keys: make(map[string]*KeyInfo, len(keys))}
	for i, k := range keys {
		if k == "" {
			continue
		}
		s.keys[HashKey(k)] = &KeyInfo{ID: fmt.Sprintf("config-%d", i+1), Name: "config"}
	}
	return s
}

func (s *Static) Validate(_ context.Context, rawKey string) (*KeyInfo, error) {
	if info, ok := s.keys[HashKey(rawKey)]; ok {
		return info, nil
	}
	return nil, ErrInvalidKey
}

// Len returns the number of configured keys.
func (s *Static) Len() int { return len(s.keys) }

// Chain tries each validator in order. A key unknown to one validator is
// offered to the next; any other failure stops the chain.
type Chain []Validator

func (c Chain) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	for _, v := range c {
		info, err := v.Validate(ctx, rawKey)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrInvalidKey) {
			return nil, err
		}
	}
	return nil, ErrInvalidKey
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return "ds_" + hex.EncodeToString(b), nil
}
