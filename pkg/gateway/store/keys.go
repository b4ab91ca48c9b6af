package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	keyPrefix  = "br-"
	tokenBytes = 32
	// displayPrefixLen is how many token characters stay visible in
	// listings, after the fixed prefix.
	displayPrefixLen = 8
)

// APIKey is a stored key. The raw secret only exists in the create
// response; everything else works from the hash.
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	Prefix     string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	IsActive   bool
}

func generateRawKey() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("store: key entropy: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

const keyColumns = "id, name, key_hash, prefix, created_at, last_used_at, is_active"

func scanKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.Prefix, &k.CreatedAt, &k.LastUsedAt, &k.IsActive)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateKey mints a key under the given name and returns the stored row
// plus the raw secret, shown exactly once.
func (s *Store) CreateKey(ctx context.Context, name string) (*APIKey, string, error) {
	raw, err := generateRawKey()
	if err != nil {
		return nil, "", err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (id, name, key_hash, prefix)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+keyColumns,
		uuid.NewString(), name, hashKey(raw), raw[:len(keyPrefix)+displayPrefixLen])
	k, err := scanKey(row)
	if err != nil {
		return nil, "", fmt.Errorf("store: create key: %w", err)
	}
	return k, raw, nil
}

// ValidateKey resolves a presented secret to its active key. Unknown or
// deactivated keys come back as nil without an error.
func (s *Store) ValidateKey(ctx context.Context, raw string) (*APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = $1 AND is_active`,
		hashKey(raw))
	k, err := scanKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: validate key: %w", err)
	}
	return k, nil
}

func (s *Store) GetKey(ctx context.Context, id string) (*APIKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, id)
	k, err := scanKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get key: %w", err)
	}
	return k, nil
}

func (s *Store) ListKeys(ctx context.Context) ([]*APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+keyColumns+` FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list keys: %w", err)
	}
	defer rows.Close()

	var out []*APIKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list keys: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list keys: %w", err)
	}
	return out, nil
}

// DeleteKey reports whether a row was actually removed.
func (s *Store) DeleteKey(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchKey stamps last_used_at. Called off the request path, so failures
// only get logged by the caller.
func (s *Store) TouchKey(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: touch key: %w", err)
	}
	return nil
}

// KeysEmpty reports whether no keys exist yet, which triggers first-boot
// key generation.
func (s *Store) KeysEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM api_keys`).Scan(&n); err != nil {
		return false, fmt.Errorf("store: count keys: %w", err)
	}
	return n == 0, nil
}
