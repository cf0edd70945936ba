package utils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/models"
)

const (
	jwksMaxAge     = 24 * time.Hour
	jwksMinRefetch = 5 * time.Minute
)

var errNoSigningKeys = errors.New("JWKS contains no usable RSA keys")

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// rsaKey decodes the modulus and exponent of an RSA signing key
func (k JWK) rsaKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
		return nil, fmt.Errorf("key %s is not an RSA signing key", k.Kid)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("key %s: bad modulus: %w", k.Kid, err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("key %s: bad exponent: %w", k.Kid, err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("key %s: exponent out of range", k.Kid)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// signingKeys indexes the usable keys of a set by kid. Unusable keys are
// logged and left out.
func (s JWKS) signingKeys() map[string]*rsa.PublicKey {
	keys := make(map[string]*rsa.PublicKey, len(s.Keys))
	for _, k := range s.Keys {
		pub, err := k.rsaKey()
		if err != nil {
			logrus.WithError(err).Debug("Skipping JWK")
			continue
		}
		keys[k.Kid] = pub
	}
	return keys
}

// JWKSValidator verifies RS256 tokens against a user pool's published keys.
// Keys are cached for a day. An unknown kid triggers a refetch, at most once
// every five minutes, so rotated keys are picked up without letting bad
// tokens hammer the endpoint.
type JWKSValidator struct {
	url    string
	issuer string
	client *http.Client
	now    func() time.Time

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

// NewJWKSValidator creates a validator for a Cognito user pool
func NewJWKSValidator(region, userPoolID string) *JWKSValidator {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
	return NewJWKSValidatorForURL(issuer+"/.well-known/jwks.json", issuer, &http.Client{Timeout: 10 * time.Second})
}

// NewJWKSValidatorForURL creates a validator that fetches keys from jwksURL.
// An empty issuer skips the iss check.
func NewJWKSValidatorForURL(jwksURL, issuer string, client *http.Client) *JWKSValidator {
	v := &JWKSValidator{
		url:    jwksURL,
		issuer: issuer,
		client: client,
		now:    time.Now,
		keys:   map[string]*rsa.PublicKey{},
	}
	if err := v.refresh(); err != nil {
		logrus.WithError(err).Warn("Initial JWKS fetch failed, will retry on first token")
		v.lastAttempt = time.Time{}
	}
	return v
}

func (v *JWKSValidator) fetch() (map[string]*rsa.PublicKey, error) {
	resp, err := v.client.Get(v.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	keys := set.signingKeys()
	if len(keys) == 0 {
		return nil, errNoSigningKeys
	}
	return keys, nil
}

// refresh replaces the cached keys. A failed fetch keeps the old ones.
func (v *JWKSValidator) refresh() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lastAttempt = v.now()
	keys, err := v.fetch()
	if err != nil {
		return err
	}
	v.keys = keys
	v.fetchedAt = v.lastAttempt
	return nil
}

func (v *JWKSValidator) lookup(kid string) (key *rsa.PublicKey, stale, mayFetch bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	now := v.now()
	return v.keys[kid], now.Sub(v.fetchedAt) > jwksMaxAge, now.Sub(v.lastAttempt) >= jwksMinRefetch
}

func (v *JWKSValidator) keyFor(kid string) (*rsa.PublicKey, error) {
	key, stale, mayFetch := v.lookup(kid)
	if key != nil && !stale {
		return key, nil
	}
	if mayFetch {
		if err := v.refresh(); err != nil {
			logrus.WithError(err).Warn("JWKS refresh failed")
		}
		key, _, _ = v.lookup(kid)
	}
	if key == nil {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}
	return key, nil
}

func (v *JWKSValidator) parse(tokenString string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.keyFor(kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	return claims, nil
}

// ValidateIdentity verifies the token and returns the identity it names
func (v *JWKSValidator) ValidateIdentity(tokenString string) (*models.Identity, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}
	email, _ := claims["email"].(string)
	return &models.Identity{UserID: sub, Email: email}, nil
}
