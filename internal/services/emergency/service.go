// Package emergency keeps the trusted contacts a user has named for emergencies.
package emergency

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
)

type Repository interface {
	CreateEmergencyContact(ctx context.Context, c *models.EmergencyContact) error
	GetEmergencyContact(ctx context.Context, id uint64) (*models.EmergencyContact, error)
	ListEmergencyContacts(ctx context.Context, userID uint64) ([]*models.EmergencyContact, error)
	SaveEmergencyContact(ctx context.Context, c *models.EmergencyContact) error
	DeleteEmergencyContact(ctx context.Context, id uint64) error
}

const (
	maxNameLen         = 120
	maxPhoneLen        = 20
	maxRelationshipLen = 50
)

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input is used for create and update; nil leaves a field unchanged on update and takes the
// default on create (can_create_sos and is_active true, can_view_medical_info false).
type Input struct {
	ContactUserID      *uint64
	ContactName        *string
	ContactPhone       *string
	ContactEmail       *string
	Relationship       *string
	CanCreateSOS       *bool
	CanViewMedicalInfo *bool
	IsActive           *bool
}

func (s *Service) List(ctx context.Context, actor models.Actor) ([]*models.EmergencyContact, error) {
	return s.repo.ListEmergencyContacts(ctx, actor.ID)
}

func (s *Service) Create(ctx context.Context, actor models.Actor, in Input) (*models.EmergencyContact, error) {
	c := &models.EmergencyContact{UserID: actor.ID, CanCreateSOS: true, IsActive: true}
	apply(c, in)
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEmergencyContact(ctx, c); err != nil {
		return nil, err
	}
	slog.Info("emergency contact added", "user_id", c.UserID, "contact_id", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id uint64) (*models.EmergencyContact, error) {
	c, err := s.repo.GetEmergencyContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpManageEmergencyContact, actor, policy.Owner(c.UserID)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor models.Actor, id uint64, in Input) (*models.EmergencyContact, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	apply(c, in)
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.repo.SaveEmergencyContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id uint64) error {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteEmergencyContact(ctx, c.ID); err != nil {
		return err
	}
	slog.Info("emergency contact removed", "user_id", c.UserID, "contact_id", c.ID)
	return nil
}

func apply(c *models.EmergencyContact, in Input) {
	if in.ContactUserID != nil {
		c.ContactUserID = in.ContactUserID
		if *in.ContactUserID == 0 {
			c.ContactUserID = nil
		}
	}
	trim := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	trim(&c.ContactName, in.ContactName)
	trim(&c.ContactPhone, in.ContactPhone)
	trim(&c.ContactEmail, in.ContactEmail)
	trim(&c.Relationship, in.Relationship)
	if in.CanCreateSOS != nil {
		c.CanCreateSOS = *in.CanCreateSOS
	}
	if in.CanViewMedicalInfo != nil {
		c.CanViewMedicalInfo = *in.CanViewMedicalInfo
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// validate requires either a linked account or an external person with a name and a way to
// reach them.
func validate(c *models.EmergencyContact) error {
	v := domainerr.NewValidation()
	switch {
	case c.Relationship == "":
		v.Field("relationship", "is required")
	case len(c.Relationship) > maxRelationshipLen:
		v.Field("relationship", "is too long")
	}
	if c.ContactUserID != nil && *c.ContactUserID == c.UserID {
		v.Field("contact_user_id", "must not be yourself")
	}
	if c.ContactUserID == nil {
		if c.ContactName == "" {
			v.Field("contact_name", "is required without contact_user_id")
		}
		if c.ContactPhone == "" && c.ContactEmail == "" {
			v.Field("contact_phone", "phone or email is required without contact_user_id")
		}
	}
	if len(c.ContactName) > maxNameLen {
		v.Field("contact_name", "is too long")
	}
	if len(c.ContactPhone) > maxPhoneLen {
		v.Field("contact_phone", "is too long")
	}
	if c.ContactEmail != "" {
		if _, err := mail.ParseAddress(c.ContactEmail); err != nil {
			v.Field("contact_email", "is not a valid address")
		}
	}
	return v.OrNil()
}
