package spamwatch

import (
	"context"
)

// API defines the interface for SpamWatch operations
type API interface {
	// Authenticate looks up and caches the client's own token
	Authenticate(ctx context.Context) (*Token, error)

	// Version returns the server version
	Version(ctx context.Context) (*Version, error)

	// Stats returns the ban list statistics
	Stats(ctx context.Context) (*Stats, error)

	TokenAPI
	BanAPI
}

// TokenAPI groups the token management operations
type TokenAPI interface {
	GetSelf(ctx context.Context) (*Token, error)
	GetTokens(ctx context.Context) ([]Token, error)
	CreateToken(ctx context.Context, userID int64, permission Permission) (*Token, error)
	GetToken(ctx context.Context, id int) (*Token, error)
	DeleteToken(ctx context.Context, id int) error
}

// BanAPI groups the ban list operations
type BanAPI interface {
	GetBans(ctx context.Context) ([]Ban, error)
	GetBanIDs(ctx context.Context) ([]int64, error)
	GetBan(ctx context.Context, userID int64) (*Ban, error)
	AddBan(ctx context.Context, userID int64, reason, message string) error
	AddBans(ctx context.Context, bans []BanRequest) error
	DeleteBan(ctx context.Context, userID int64) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)
