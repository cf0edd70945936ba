package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider/cognitoidentityprovideriface"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

const defaultSessionTTL = time.Hour

// CognitoConfig holds the user pool settings
type CognitoConfig struct {
	Region       string
	UserPoolID   string
	ClientID     string
	ClientSecret string
	// AutoConfirm confirms new sign-ups server side instead of waiting for
	// the email code
	AutoConfirm bool
}

// CognitoProvider implements Provider on an AWS Cognito user pool
type CognitoProvider struct {
	api      cognitoidentityprovideriface.CognitoIdentityProviderAPI
	cfg      CognitoConfig
	sessions SessionStore
	breaker  *utils.CircuitBreaker
	log      *logrus.Entry
}

// NewCognitoProvider creates a provider with its own AWS session
func NewCognitoProvider(cfg CognitoConfig, sessions SessionStore) (*CognitoProvider, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	// max 5 failures, 30 second reset
	breaker := utils.NewCircuitBreaker("cognito", 5, 30*time.Second)
	return newCognitoProvider(cognitoidentityprovider.New(sess), cfg, sessions, breaker), nil
}

func newCognitoProvider(api cognitoidentityprovideriface.CognitoIdentityProviderAPI, cfg CognitoConfig, sessions SessionStore, breaker *utils.CircuitBreaker) *CognitoProvider {
	breaker.IgnoreErrors(isClientError)
	return &CognitoProvider{
		api:      api,
		cfg:      cfg,
		sessions: sessions,
		breaker:  breaker,
		log:      logrus.WithField("component", "cognito"),
	}
}

// generateSecretHash creates a secret hash for Cognito authentication
func (p *CognitoProvider) generateSecretHash(username string) string {
	if p.cfg.ClientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(p.cfg.ClientSecret))
	mac.Write([]byte(username + p.cfg.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (p *CognitoProvider) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return classify(op, fn(ctx))
	})
	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		return apperr.Transient(op, err)
	}
	return err
}

// classify maps Cognito error codes onto domain errors
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return apperr.Transient(op, err)
	}
	switch aerr.Code() {
	case cognitoidentityprovider.ErrCodeNotAuthorizedException,
		cognitoidentityprovider.ErrCodeUserNotFoundException,
		cognitoidentityprovider.ErrCodeUserNotConfirmedException:
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	case cognitoidentityprovider.ErrCodeUsernameExistsException:
		return apperr.Conflict(op, "an account with this email already exists")
	case cognitoidentityprovider.ErrCodeInvalidPasswordException,
		cognitoidentityprovider.ErrCodeInvalidParameterException:
		return apperr.Validation(op, "%s", aerr.Message())
	default:
		return apperr.Transient(op, err)
	}
}

func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrValidation)
}

// Authenticate signs in with USER_PASSWORD_AUTH and opens a session
func (p *CognitoProvider) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	const op = "authenticate"
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.Validation(op, "email and password are required")
	}

	authParams := map[string]*string{
		"USERNAME": aws.String(email),
		"PASSWORD": aws.String(password),
	}
	if secretHash := p.generateSecretHash(email); secretHash != "" {
		authParams["SECRET_HASH"] = aws.String(secretHash)
	}

	var out *cognitoidentityprovider.InitiateAuthOutput
	err := p.call(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = p.api.InitiateAuthWithContext(ctx, &cognitoidentityprovider.InitiateAuthInput{
			AuthFlow:       aws.String(cognitoidentityprovider.AuthFlowTypeUserPasswordAuth),
			ClientId:       aws.String(p.cfg.ClientID),
			AuthParameters: authParams,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.AuthenticationResult == nil {
		// challenges such as NEW_PASSWORD_REQUIRED are not supported
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	result := out.AuthenticationResult
	identity, err := identityFromToken(aws.StringValue(result.IdToken))
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	if identity.Email == "" {
		identity.Email = email
	}

	ttl := time.Duration(aws.Int64Value(result.ExpiresIn)) * time.Second
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	accessToken := aws.StringValue(result.AccessToken)
	if _, err := p.sessions.Create(ctx, accessToken, *identity, ttl); err != nil {
		return nil, apperr.Transient(op, err)
	}

	p.log.WithField("user_id", identity.UserID).Info("User signed in")
	return &Session{
		Identity:     *identity,
		AccessToken:  accessToken,
		IDToken:      aws.StringValue(result.IdToken),
		RefreshToken: aws.StringValue(result.RefreshToken),
		ExpiresIn:    int64(ttl / time.Second),
	}, nil
}

// Register signs up a new identity
func (p *CognitoProvider) Register(ctx context.Context, email, password string, profile Profile) (*models.Identity, error) {
	const op = "register"
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperr.Validation(op, "email and password are required")
	}

	name := profile.Name
	if name == "" {
		name = profile.OrganizationName
	}
	userAttributes := []*cognitoidentityprovider.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
	}
	if name != "" {
		userAttributes = append(userAttributes, &cognitoidentityprovider.AttributeType{
			Name: aws.String("name"), Value: aws.String(name),
		})
	}

	signUpInput := &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(p.cfg.ClientID),
		Username:       aws.String(email),
		Password:       aws.String(password),
		UserAttributes: userAttributes,
	}
	if secretHash := p.generateSecretHash(email); secretHash != "" {
		signUpInput.SecretHash = aws.String(secretHash)
	}

	var out *cognitoidentityprovider.SignUpOutput
	err := p.call(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = p.api.SignUpWithContext(ctx, signUpInput)
		return err
	})
	if err != nil {
		return nil, err
	}

	if p.cfg.AutoConfirm {
		err := p.call(ctx, "confirm sign up", func(ctx context.Context) error {
			_, err := p.api.AdminConfirmSignUpWithContext(ctx, &cognitoidentityprovider.AdminConfirmSignUpInput{
				UserPoolId: aws.String(p.cfg.UserPoolID),
				Username:   aws.String(email),
			})
			return err
		})
		if err != nil {
			p.log.WithError(err).WithField("email", email).Warn("Auto-confirm failed, user must confirm by email")
		}
	}

	return &models.Identity{UserID: aws.StringValue(out.UserSub), Email: email}, nil
}

// DeleteIdentity removes a user from the pool
func (p *CognitoProvider) DeleteIdentity(ctx context.Context, email string) error {
	return p.call(ctx, "delete identity", func(ctx context.Context) error {
		_, err := p.api.AdminDeleteUserWithContext(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
			UserPoolId: aws.String(p.cfg.UserPoolID),
			Username:   aws.String(strings.ToLower(email)),
		})
		return err
	})
}

// CurrentIdentity resolves a token through the session store
func (p *CognitoProvider) CurrentIdentity(ctx context.Context, accessToken string) (*models.Identity, error) {
	return currentIdentity(ctx, p.sessions, accessToken)
}

func currentIdentity(ctx context.Context, sessions SessionStore, accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}
	session, err := sessions.Get(ctx, accessToken)
	if errors.Is(err, utils.ErrSessionNotFound) || errors.Is(err, utils.ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient("current identity", err)
	}
	identity := session.Identity
	return &identity, nil
}

// SignOut revokes the local session and the provider's tokens. The session
// is dropped even when the provider call fails.
func (p *CognitoProvider) SignOut(ctx context.Context, accessToken string) error {
	const op = "sign out"
	if err := p.sessions.Revoke(ctx, accessToken); err != nil {
		return apperr.Transient(op, err)
	}
	err := p.call(ctx, op, func(ctx context.Context) error {
		_, err := p.api.GlobalSignOutWithContext(ctx, &cognitoidentityprovider.GlobalSignOutInput{
			AccessToken: aws.String(accessToken),
		})
		return err
	})
	if err != nil && !errors.Is(err, ErrInvalidCredentials) {
		p.log.WithError(err).Warn("Global sign out failed")
	}
	return nil
}

// identityFromToken reads sub and email from an id token issued by the
// provider in the same round trip
func identityFromToken(tokenString string) (*models.Identity, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("sub claim not found or not a string")
	}
	email, _ := claims["email"].(string)
	return &models.Identity{UserID: sub, Email: email}, nil
}
