package club

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
)

type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon" db:"icon"` // emoji or icon class
	ClubCount   int       `json:"ukm_count" db:"club_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// Club is a student activity unit (UKM).
type Club struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	CategoryID    string    `json:"category_id" db:"category_id"`
	CategoryName  string    `json:"category_name" db:"category_name"`
	LogoURL       *string   `json:"logo_url" db:"logo_url"`
	ContactPerson string    `json:"contact_person" db:"contact_person"`
	ContactEmail  string    `json:"contact_email" db:"contact_email"`
	ContactPhone  string    `json:"contact_phone" db:"contact_phone"`
	Achievements  string    `json:"achievements" db:"achievements"`
	Activities    string    `json:"activities" db:"activities"` // regular activities
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// LogoSubject describes what to display as the logo of c.
func (c Club) LogoSubject() avatar.Subject {
	sub := avatar.Subject{Name: c.Name}
	if c.LogoURL != nil {
		sub.Primary = *c.LogoURL
	}
	return sub
}

// NewClub contains information needed to create a new Club.
type NewClub struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description"`
	CategoryID    string `json:"category_id" validate:"required,uuid"`
	LogoURL       string `json:"logo_url" validate:"omitempty,max=2097152,avatar_ref"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	ContactEmail  string `json:"contact_email" validate:"omitempty,email,max=120"`
	ContactPhone  string `json:"contact_phone" validate:"omitempty,max=20,phone"`
	Achievements  string `json:"achievements"`
	Activities    string `json:"activities"`
}

func (nc *NewClub) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.CategoryID = core.CleanString(nc.CategoryID, true /* lower */)
	nc.LogoURL = core.CleanString(nc.LogoURL)
	nc.ContactPerson = core.CleanString(nc.ContactPerson)
	nc.ContactEmail = core.CleanString(nc.ContactEmail, true /* lower */)
	nc.ContactPhone = core.CleanString(nc.ContactPhone)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if err := svc.CheckCategory(ctx, nc.CategoryID); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.Name)
}

// UpdateClub defines what may be changed on an existing Club. Nil fields are left untouched.
type UpdateClub struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string `json:"description"`
	CategoryID    *string `json:"category_id" validate:"omitempty,uuid"`
	LogoURL       *string `json:"logo_url" validate:"omitempty,max=2097152,avatar_ref"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=100"`
	ContactEmail  *string `json:"contact_email" validate:"omitempty,email,max=120"`
	ContactPhone  *string `json:"contact_phone" validate:"omitempty,max=20,phone"`
	Achievements  *string `json:"achievements"`
	Activities    *string `json:"activities"`
	IsActive      *bool   `json:"is_active"`
}

func (uc *UpdateClub) Validate(ctx context.Context, orig Club, validate *validator.Validate, svc Service) error {
	for _, fld := range []*string{uc.Name, uc.Description, uc.CategoryID, uc.LogoURL, uc.ContactPerson, uc.ContactEmail, uc.ContactPhone} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	if uc.Name != nil && *uc.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.CategoryID != nil && *uc.CategoryID != orig.CategoryID {
		if err := svc.CheckCategory(ctx, *uc.CategoryID); err != nil {
			return err
		}
	}
	if uc.Name != nil {
		return svc.CheckUniqueness(ctx, *uc.Name, orig)
	}
	return nil
}

func (uc UpdateClub) apply(c *Club) {
	set := func(dst *string, val *string) {
		if val != nil {
			*dst = *val
		}
	}
	set(&c.Name, uc.Name)
	set(&c.Description, uc.Description)
	set(&c.CategoryID, uc.CategoryID)
	set(&c.ContactPerson, uc.ContactPerson)
	set(&c.ContactEmail, uc.ContactEmail)
	set(&c.ContactPhone, uc.ContactPhone)
	set(&c.Achievements, uc.Achievements)
	set(&c.Activities, uc.Activities)
	if uc.LogoURL != nil {
		c.LogoURL = core.StringPtr(*uc.LogoURL) // blank removes the logo
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
}

type NewCategory struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Icon        string `json:"icon" validate:"max=50"`
}

func (nc *NewCategory) Validate(ctx context.Context, validate *validator.Validate, svc Service, orig ...Category) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.Icon = core.CleanString(nc.Icon)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCategoryUniqueness(ctx, nc.Name, orig...)
}

type QueryFilter struct {
	Search     string `query:"search"`
	CategoryID string `query:"category_id"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CategoryID == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CategoryID = core.CleanString(qf.CategoryID, true /* lower */)
}

// OrderingFields are the columns clubs may be ordered by.
var OrderingFields = map[string]bool{
	"name":       true,
	"created_at": true,
	"updated_at": true,
}
