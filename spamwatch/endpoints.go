package spamwatch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const (
	pathVersion = "version"
	pathTokens  = "tokens"
	pathSelf    = "tokens/self"
	pathBanlist = "banlist"
	pathBanIDs  = "banlist/all"
	pathStats   = "stats"
)

func tokenPath(id int) string {
	return pathTokens + "/" + strconv.Itoa(id)
}

func banPath(userID int64) string {
	return pathBanlist + "/" + strconv.FormatInt(userID, 10)
}

// Version returns the API server version
func (c *Client) Version(ctx context.Context) (*Version, error) {
	v, err := dispatch[Version](ctx, c, http.MethodGet, pathVersion, nil, decodeEntity[Version])
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetSelf returns the token the client authenticates with and caches it
func (c *Client) GetSelf(ctx context.Context) (*Token, error) {
	t, err := dispatch[Token](ctx, c, http.MethodGet, pathSelf, nil, decodeEntity[Token])
	if err != nil {
		return nil, err
	}
	cached := t
	c.self.Store(&cached)
	return &t, nil
}

// GetTokens lists all tokens. Requires Root.
func (c *Client) GetTokens(ctx context.Context) ([]Token, error) {
	return dispatch[[]Token](ctx, c, http.MethodGet, pathTokens, nil, decodeList[Token])
}

// CreateToken creates a token for the given Telegram user. Requires Root.
func (c *Client) CreateToken(ctx context.Context, userID int64, permission Permission) (*Token, error) {
	if _, ok := permissionNames[permission]; !ok {
		return nil, fmt.Errorf("spamwatch: invalid permission %d", permission)
	}

	body := struct {
		UserID     int64      `json:"id"`
		Permission Permission `json:"permission"`
	}{UserID: userID, Permission: permission}

	t, err := dispatch[Token](ctx, c, http.MethodPost, pathTokens, body, decodeEntity[Token])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetToken returns a token by ID. Requires Root.
func (c *Client) GetToken(ctx context.Context, id int) (*Token, error) {
	t, err := dispatch[Token](ctx, c, http.MethodGet, tokenPath(id), nil, decodeEntity[Token])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteToken retires a token by ID. Requires Root.
func (c *Client) DeleteToken(ctx context.Context, id int) error {
	_, err := dispatch[struct{}](ctx, c, http.MethodDelete, tokenPath(id), nil, decodeNothing)
	return err
}

// GetBans lists all bans with their details. Requires Admin.
func (c *Client) GetBans(ctx context.Context) ([]Ban, error) {
	return dispatch[[]Ban](ctx, c, http.MethodGet, pathBanlist, nil, decodeList[Ban])
}

// GetBanIDs lists the IDs of all banned users
func (c *Client) GetBanIDs(ctx context.Context) ([]int64, error) {
	return dispatch[[]int64](ctx, c, http.MethodGet, pathBanIDs, nil, decodeIDs)
}

// GetBan returns the ban of a user. An unbanned user yields a NotFoundError.
func (c *Client) GetBan(ctx context.Context, userID int64) (*Ban, error) {
	b, err := dispatch[Ban](ctx, c, http.MethodGet, banPath(userID), nil, decodeEntity[Ban])
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AddBan bans a user. message is the evidence and may be empty. Requires Admin.
func (c *Client) AddBan(ctx context.Context, userID int64, reason, message string) error {
	return c.AddBans(ctx, []BanRequest{{UserID: userID, Reason: reason, Message: message}})
}

// AddBans submits several bans in one request. Requires Admin.
func (c *Client) AddBans(ctx context.Context, bans []BanRequest) error {
	if len(bans) == 0 {
		return nil
	}
	_, err := dispatch[struct{}](ctx, c, http.MethodPost, pathBanlist, bans, decodeNothing)
	return err
}

// DeleteBan lifts the ban of a user. Requires Admin.
func (c *Client) DeleteBan(ctx context.Context, userID int64) error {
	_, err := dispatch[struct{}](ctx, c, http.MethodDelete, banPath(userID), nil, decodeNothing)
	return err
}

// Stats returns the ban list statistics
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	s, err := dispatch[Stats](ctx, c, http.MethodGet, pathStats, nil, decodeEntity[Stats])
	if err != nil {
		return nil, err
	}
	return &s, nil
}
