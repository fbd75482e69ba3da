package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

var _ signature.Cache = (*Store)(nil)

// Get returns the signature cached under key.
func (s *Store) Get(ctx context.Context, key string) (ir.Signature, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT signature FROM signatures WHERE cache_key = ?`, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Signature{}, false, nil
	}
	if err != nil {
		return ir.Signature{}, false, fmt.Errorf("get signature: %w", err)
	}

	var sig ir.Signature
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return ir.Signature{}, false, fmt.Errorf("decode signature %s: %w", key, err)
	}
	return sig, true, nil
}

// Put stores sig under key. Keys are content addressed, so a second Put
// for the same key is ignored.
func (s *Store) Put(ctx context.Context, key string, sig ir.Signature) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("put signature: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signatures (cache_key, signature, signature_hash, boundary_kind)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO NOTHING
	`, key, string(data), signature.Hash(sig), string(sig.Kind))
	if err != nil {
		return fmt.Errorf("put signature: %w", err)
	}
	return nil
}

// Len returns the number of cached signatures.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signatures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}

// KeysWithHash returns the cache keys whose signature hashes to hash.
// Returns an empty slice (not nil) when there are none.
func (s *Store) KeysWithHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key FROM signatures
		WHERE signature_hash = ?
		ORDER BY cache_key COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan signature key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return keys, nil
}
