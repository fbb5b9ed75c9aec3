// Package pg implements core.Store on PostgreSQL using pgxpool.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authhub/authhub/internal/store/core"
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) CreateConnection(ctx context.Context, c *core.Connection) error {
	const query = `
		INSERT INTO connection
			(id, agency_id, platform, external_account_id, external_account_name,
			 scopes, status, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		c.ID, c.AgencyID, c.Platform, c.ExternalAccountID, c.ExternalAccountName,
		c.Scopes, c.Status, c.TokenExpiresAt,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pg: insert connection: %w", err)
	}
	return nil
}

func (s *Store) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	const query = `
		SELECT id, agency_id, platform, external_account_id, COALESCE(external_account_name, ''),
		       scopes, status, token_expires_at, created_at, updated_at
		FROM connection WHERE id = $1
	`
	var c core.Connection
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.AgencyID, &c.Platform, &c.ExternalAccountID, &c.ExternalAccountName,
		&c.Scopes, &c.Status, &c.TokenExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get connection: %w", err)
	}
	return &c, nil
}

func (s *Store) ListConnectionsExpiring(ctx context.Context, before time.Time) ([]*core.Connection, error) {
	const query = `
		SELECT id, agency_id, platform, external_account_id, COALESCE(external_account_name, ''),
		       scopes, status, token_expires_at, created_at, updated_at
		FROM connection
		WHERE status = $1 AND token_expires_at < $2
		ORDER BY token_expires_at
	`
	rows, err := s.pool.Query(ctx, query, core.ConnectionActive, before)
	if err != nil {
		return nil, fmt.Errorf("pg: list expiring connections: %w", err)
	}
	defer rows.Close()

	var out []*core.Connection
	for rows.Next() {
		var c core.Connection
		if err := rows.Scan(
			&c.ID, &c.AgencyID, &c.Platform, &c.ExternalAccountID, &c.ExternalAccountName,
			&c.Scopes, &c.Status, &c.TokenExpiresAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pg: scan connection: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateConnectionStatus(ctx context.Context, id string, status core.ConnectionStatus) error {
	const query = `UPDATE connection SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("pg: update connection status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateConnectionExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE connection SET token_expires_at = $2, updated_at = NOW() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, expiresAt)
	if err != nil {
		return fmt.Errorf("pg: update connection expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAccessRequest(ctx context.Context, r *core.AccessRequest) error {
	const query = `
		INSERT INTO access_request (id, agency_id, client_email, platforms, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		r.ID, r.AgencyID, r.ClientEmail, r.Platforms, r.Status,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pg: insert access request: %w", err)
	}
	return nil
}

func (s *Store) GetAccessRequest(ctx context.Context, id string) (*core.AccessRequest, error) {
	const query = `
		SELECT id, agency_id, client_email, platforms, status, created_at, updated_at
		FROM access_request WHERE id = $1
	`
	var r core.AccessRequest
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.AgencyID, &r.ClientEmail, &r.Platforms, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get access request: %w", err)
	}
	return &r, nil
}

func (s *Store) UpdateAccessRequestStatus(ctx context.Context, id string, status core.AccessRequestStatus) error {
	const query = `UPDATE access_request SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("pg: update access request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
