package models

import "time"

// UserType represents the kind of account behind an identity
type UserType string

const (
	UserTypeHostelOwner UserType = "hostel_owner"
	UserTypeStaff       UserType = "staff"
)

// Identity is an authenticated principal as reported by the identity provider
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserProfile is the owner profile document stored in the users collection,
// keyed by the identity provider's user id
type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	OrganizationName string    `json:"organizationName,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	UserType         UserType  `json:"userType"`
	IdentityID       string    `json:"identityId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DisplayName falls back to the organization name like the signup form does
func (p *UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.OrganizationName
}

// TokenSession represents a signed-in session stored in Redis
type TokenSession struct {
	Identity   Identity  `json:"identity"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	SessionID  string    `json:"session_id"`
}

// IsExpired reports whether the session has passed its expiry at now
func (ts *TokenSession) IsExpired(now time.Time) bool {
	return now.After(ts.ExpiresAt)
}
