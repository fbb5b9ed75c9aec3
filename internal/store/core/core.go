// Package core defines the durable records and the storage contract.
// Tokens themselves are never stored here, only the connection metadata
// the dashboards and the refresh sweep need.
package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a missing record.
var ErrNotFound = errors.New("store: not found")

// ConnectionStatus is the lifecycle state of a platform connection.
type ConnectionStatus string

const (
	ConnectionActive ConnectionStatus = "active"
	// ConnectionReauthRequired marks connections whose token expired on a
	// platform without refresh tokens.
	ConnectionReauthRequired ConnectionStatus = "reauth_required"
	ConnectionRevoked        ConnectionStatus = "revoked"
)

// Connection is an agency's link to one platform account.
type Connection struct {
	ID                  string
	AgencyID            string
	Platform            string
	ExternalAccountID   string
	ExternalAccountName string
	Scopes              []string
	Status              ConnectionStatus
	// TokenExpiresAt mirrors the normalized token expiry, driving the
	// refresh sweep. The token itself lives in the external secret store.
	TokenExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccessRequestStatus is the lifecycle state of an access request.
type AccessRequestStatus string

const (
	AccessRequestPending   AccessRequestStatus = "pending"
	AccessRequestGranted   AccessRequestStatus = "granted"
	AccessRequestDeclined  AccessRequestStatus = "declined"
	AccessRequestCancelled AccessRequestStatus = "cancelled"
)

// AccessRequest is an agency's ask for a client to share platform access.
type AccessRequest struct {
	ID          string
	AgencyID    string
	ClientEmail string
	Platforms   []string
	Status      AccessRequestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the durable storage contract.
type Store interface {
	CreateConnection(ctx context.Context, c *Connection) error
	GetConnection(ctx context.Context, id string) (*Connection, error)
	// ListConnectionsExpiring returns active connections whose token expires
	// before the given instant (the refresh sweep's work list).
	ListConnectionsExpiring(ctx context.Context, before time.Time) ([]*Connection, error)
	UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus) error
	UpdateConnectionExpiry(ctx context.Context, id string, expiresAt time.Time) error

	CreateAccessRequest(ctx context.Context, r *AccessRequest) error
	GetAccessRequest(ctx context.Context, id string) (*AccessRequest, error)
	UpdateAccessRequestStatus(ctx context.Context, id string, status AccessRequestStatus) error

	Ping(ctx context.Context) error
	Close() error
}
