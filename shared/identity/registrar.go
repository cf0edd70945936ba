package identity

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-hostel-management-system/shared/apperr"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// HostelDetails describes the owner's first hostel. Empty fields fall back
// to the profile.
type HostelDetails struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// OwnerRegistration is the signup form of a new hostel owner
type OwnerRegistration struct {
	Email    string        `json:"email" binding:"required,email"`
	Password string        `json:"password" binding:"required,min=8"`
	Profile  Profile       `json:"profile"`
	Hostel   HostelDetails `json:"hostel"`
}

// Registrar creates an owner's identity, profile and first hostel together
type Registrar struct {
	provider Provider
	store    store.Store
	hostels  *hostel.HostelManager
	now      func() time.Time
	log      *logrus.Entry
}

// NewRegistrar creates a registrar
func NewRegistrar(provider Provider, st store.Store, hostels *hostel.HostelManager) *Registrar {
	return &Registrar{
		provider: provider,
		store:    st,
		hostels:  hostels,
		now:      time.Now,
		log:      logrus.WithField("component", "registrar"),
	}
}

// RegisterOwner registers the identity, writes the profile and creates the
// hostel. When a later step fails the identity is deleted again so the email
// can be reused.
func (r *Registrar) RegisterOwner(ctx context.Context, reg OwnerRegistration) (*models.UserProfile, *models.Hostel, error) {
	const op = "register owner"

	if reg.Profile.UserType == "" {
		reg.Profile.UserType = models.UserTypeHostelOwner
	}
	hostelName := strings.TrimSpace(reg.Hostel.Name)
	if hostelName == "" {
		hostelName = strings.TrimSpace(reg.Profile.OrganizationName)
	}
	if hostelName == "" {
		return nil, nil, apperr.Validation(op, "hostel name or organization name is required")
	}

	identity, err := r.provider.Register(ctx, reg.Email, reg.Password, reg.Profile)
	if err != nil {
		return nil, nil, err
	}
	log := r.log.WithField("user_id", identity.UserID)

	profile, err := r.writeProfile(ctx, *identity, reg.Profile)
	if err != nil {
		r.compensate(ctx, log, identity.Email, err)
		return nil, nil, err
	}

	email := reg.Hostel.Email
	if email == "" {
		email = identity.Email
	}
	phone := reg.Hostel.Phone
	if phone == "" {
		phone = reg.Profile.Phone
	}
	address := reg.Hostel.Address
	if address == "" {
		address = reg.Profile.Address
	}
	h, err := r.hostels.Create(ctx, hostel.CreateHostelInput{
		OwnerID: identity.UserID,
		Name:    hostelName,
		Address: address,
		Phone:   phone,
		Email:   email,
	})
	if err != nil {
		if delErr := r.store.Delete(ctx, models.CollectionUsers, profile.ID); delErr != nil {
			log.WithError(delErr).Error("Failed to remove profile after hostel creation failure")
		}
		r.compensate(ctx, log, identity.Email, err)
		return nil, nil, err
	}

	log.WithField("hostel_id", h.ID).Info("Owner registered")
	return profile, h, nil
}

func (r *Registrar) compensate(ctx context.Context, log *logrus.Entry, email string, cause error) {
	log.WithError(cause).Warn("Registration failed, deleting identity")
	if err := r.provider.DeleteIdentity(ctx, email); err != nil {
		log.WithError(err).Error("Failed to delete identity during compensation")
	}
}

func (r *Registrar) writeProfile(ctx context.Context, identity models.Identity, p Profile) (*models.UserProfile, error) {
	const op = "write profile"
	now := r.now().UTC()
	profile := models.UserProfile{
		Email:            identity.Email,
		Name:             strings.TrimSpace(p.Name),
		OrganizationName: strings.TrimSpace(p.OrganizationName),
		Phone:            strings.TrimSpace(p.Phone),
		Address:          strings.TrimSpace(p.Address),
		UserType:         p.UserType,
		IdentityID:       identity.UserID,
	}
	fields, err := store.Encode(profile)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	id, err := r.store.Create(ctx, models.CollectionUsers, fields)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	profile.ID = id
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return &profile, nil
}

// Profile loads the profile written for an identity
func (r *Registrar) Profile(ctx context.Context, identityID string) (*models.UserProfile, error) {
	const op = "get profile"
	docs, err := r.store.List(ctx, models.CollectionUsers,
		[]store.Filter{store.Where("identityId", store.OpEq, identityID)}, nil)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound(op, "profile", identityID)
	}
	var profile models.UserProfile
	if err := store.Decode(&docs[0], &profile); err != nil {
		return nil, apperr.Transient(op, err)
	}
	return &profile, nil
}
