package main

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/identity"
	"github.com/pavitra93/go-hostel-management-system/shared/middleware"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	IdToken      string          `json:"id_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int64           `json:"expires_in"`
	TokenType    string          `json:"token_type"`
	User         models.Identity `json:"user"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Profile *models.UserProfile `json:"profile"`
	Hostel  *models.Hostel      `json:"hostel"`
}

// MeResponse represents the current user
type MeResponse struct {
	User    models.Identity     `json:"user"`
	Profile *models.UserProfile `json:"profile,omitempty"`
}

// authError answers identity failures; bad credentials are a 401, not a 400
func authError(c *gin.Context, err error) {
	if errors.Is(err, identity.ErrInvalidCredentials) {
		utils.UnauthorizedResponse(c, "Invalid email or password")
		return
	}
	utils.DomainErrorResponse(c, err)
}

// handleLogin handles owner sign-in
func handleLogin(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		session, err := provider.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			authError(c, err)
			return
		}

		utils.OKResponse(c, "Login successful", LoginResponse{
			AccessToken:  session.AccessToken,
			IdToken:      session.IDToken,
			RefreshToken: session.RefreshToken,
			ExpiresIn:    session.ExpiresIn,
			TokenType:    "Bearer",
			User:         session.Identity,
		})
	}
}

// handleRegister creates the owner's identity, profile and first hostel
func handleRegister(registrar *identity.Registrar) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req identity.OwnerRegistration
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		profile, hostel, err := registrar.RegisterOwner(c.Request.Context(), req)
		if err != nil {
			authError(c, err)
			return
		}

		utils.CreatedResponse(c, "Registration successful", RegisterResponse{Profile: profile, Hostel: hostel})
	}
}

// handleLogout revokes the caller's session
func handleLogout(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := middleware.GetAccessToken(c)
		if accessToken == "" {
			utils.UnauthorizedResponse(c, "No active session found")
			return
		}

		if err := provider.SignOut(c.Request.Context(), accessToken); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Logout successful", nil)
	}
}

// handleMe returns the signed-in identity and its profile
func handleMe(registrar *identity.Registrar) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			utils.UnauthorizedResponse(c, "User identity required")
			return
		}

		profile, err := registrar.Profile(c.Request.Context(), user.UserID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "User retrieved successfully", MeResponse{User: user, Profile: profile})
	}
}
