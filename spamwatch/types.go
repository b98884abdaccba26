package spamwatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blang/semver"
)

// Permission is the privilege level of an API token
type Permission int

const (
	PermissionUser Permission = iota
	PermissionAdmin
	PermissionRoot
)

// permissionNames maps each permission to its wire literal
var permissionNames = map[Permission]string{
	PermissionUser:  "User",
	PermissionAdmin: "Admin",
	PermissionRoot:  "Root",
}

// String returns the wire literal of the permission
func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "User"
}

// AtLeast reports whether p grants at least the privileges of other
func (p Permission) AtLeast(other Permission) bool {
	return p >= other
}

// ParsePermission parses an exact permission literal.
// Unlike decoding, unknown values are rejected.
func ParsePermission(s string) (Permission, error) {
	for p, name := range permissionNames {
		if name == s {
			return p, nil
		}
	}
	return PermissionUser, fmt.Errorf("spamwatch: unknown permission %q (want User, Admin or Root)", s)
}

// MarshalText implements encoding.TextMarshaler
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// "Root" and "Admin" map exactly, anything else reads as User.
func (p *Permission) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Root":
		*p = PermissionRoot
	case "Admin":
		*p = PermissionAdmin
	default:
		*p = PermissionUser
	}
	return nil
}

// Token is an API token as returned by the tokens endpoints
type Token struct {
	ID         int
	Permission Permission
	Retired    bool
	// APIToken is the secret; listings may leave it empty
	APIToken string
	// UserID is the Telegram ID of the token owner
	UserID int64
}

type tokenWire struct {
	ID         int        `json:"id"`
	Permission Permission `json:"permission"`
	Retired    bool       `json:"retired"`
	Token      string     `json:"token,omitempty"`
	UserID     int64      `json:"userid,omitempty"`
}

// tokenAliases holds the snake_case names some deployments use
type tokenAliases struct {
	APIToken *string `json:"api_token"`
	UserID   *int64  `json:"user_id"`
}

// MarshalJSON implements json.Marshaler
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenWire{
		ID:         t.ID,
		Permission: t.Permission,
		Retired:    t.Retired,
		Token:      t.APIToken,
		UserID:     t.UserID,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Token) UnmarshalJSON(data []byte) error {
	var w tokenWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var alias tokenAliases
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*t = Token{
		ID:         w.ID,
		Permission: w.Permission,
		Retired:    w.Retired,
		APIToken:   w.Token,
		UserID:     w.UserID,
	}
	if t.APIToken == "" && alias.APIToken != nil {
		t.APIToken = *alias.APIToken
	}
	if t.UserID == 0 && alias.UserID != nil {
		t.UserID = *alias.UserID
	}
	return nil
}

// Ban is an entry of the ban list
type Ban struct {
	UserID  int64
	Reason  string
	Message string
	// Admin is the ID of the token that issued the ban, set by the server
	Admin int
	// Date is set by the server when the ban is created
	Date time.Time
}

type banWire struct {
	UserID  int64  `json:"id"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
	Admin   int    `json:"admin,omitempty"`
	Date    int64  `json:"date,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (b Ban) MarshalJSON() ([]byte, error) {
	w := banWire{
		UserID:  b.UserID,
		Reason:  b.Reason,
		Message: b.Message,
		Admin:   b.Admin,
	}
	if !b.Date.IsZero() {
		w.Date = b.Date.Unix()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *Ban) UnmarshalJSON(data []byte) error {
	var w struct {
		banWire
		Message *string `json:"message"`
		AltID   *int64  `json:"user_id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*b = Ban{
		UserID: w.UserID,
		Reason: w.Reason,
		Admin:  w.Admin,
	}
	if w.Message != nil {
		b.Message = *w.Message
	}
	if b.UserID == 0 && w.AltID != nil {
		b.UserID = *w.AltID
	}
	if w.Date != 0 {
		b.Date = time.Unix(w.Date, 0)
	}
	return nil
}

// BanRequest is a client-authored ban submission
type BanRequest struct {
	UserID  int64  `json:"id"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Stats holds the ban list statistics
type Stats struct {
	TotalBanCount int64 `json:"total_ban_count"`
}

// Version describes the API server version
type Version struct {
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Patch   int    `json:"patch"`
	Version string `json:"version"`
}

// MinimumAPIVersion is the oldest server version this client is tested against
var MinimumAPIVersion = semver.MustParse("0.2.0")

// Semver returns the numeric version as a semver.Version
func (v Version) Semver() (semver.Version, error) {
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return semver.Version{}, fmt.Errorf("spamwatch: invalid version %d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return semver.Version{
		Major: uint64(v.Major),
		Minor: uint64(v.Minor),
		Patch: uint64(v.Patch),
	}, nil
}

// Supported reports whether the server version is at least MinimumAPIVersion
func (v Version) Supported() bool {
	sv, err := v.Semver()
	if err != nil {
		return false
	}
	return sv.GTE(MinimumAPIVersion)
}

// String returns the human readable version
func (v Version) String() string {
	if v.Version != "" {
		return v.Version
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
