// Package identity authenticates hostel owners against the identity provider
// and keeps their signed-in sessions.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

// ErrInvalidCredentials is returned when the provider rejects an email/password pair
var ErrInvalidCredentials = errors.New("invalid email or password")

// Profile carries the signup form fields stored alongside an identity
type Profile struct {
	Name             string          `json:"name"`
	OrganizationName string          `json:"organizationName"`
	Phone            string          `json:"phone"`
	Address          string          `json:"address"`
	UserType         models.UserType `json:"userType"`
}

// Session is the result of a successful sign-in
type Session struct {
	Identity     models.Identity `json:"identity"`
	AccessToken  string          `json:"access_token"`
	IDToken      string          `json:"id_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int64           `json:"expires_in"`
}

// Provider is the external identity capability
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, email, password string, profile Profile) (*models.Identity, error)
	DeleteIdentity(ctx context.Context, email string) error
	// CurrentIdentity returns nil when the token has no live session
	CurrentIdentity(ctx context.Context, accessToken string) (*models.Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SessionStore keeps signed-in sessions keyed by access token
type SessionStore interface {
	Create(ctx context.Context, accessToken string, identity models.Identity, ttl time.Duration) (*models.TokenSession, error)
	Get(ctx context.Context, accessToken string) (*models.TokenSession, error)
	Revoke(ctx context.Context, accessToken string) error
}
