// Package testutil holds the fixtures shared by the tests of the API, the admin CLI and the repositories.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
)

// NewValidator returns a validator with every custom tag of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	avatar.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func timestamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, uname, email string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := timestamp(createdAt)
	usr := user.User{
		ID:        uuid.New().String(),
		FullName:  fullName,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCategory(t *testing.T, repo club.Repository, name string, createdAt ...time.Time) club.Category {
	cat := club.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Icon:      "🎭",
		CreatedAt: timestamp(createdAt),
	}
	cat, err := repo.CreateCategory(context.Background(), cat)
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return cat
}

func CreateClub(
	t *testing.T,
	repo club.Repository,
	name string,
	cat club.Category,
	logo *string,
	isActive bool,
	createdAt ...time.Time,
) club.Club {
	tstamp := timestamp(createdAt)
	c := club.Club{
		ID:          uuid.New().String(),
		Name:        name,
		Description: "UKM " + name,
		CategoryID:  cat.ID,
		LogoURL:     logo,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	c, err := repo.CreateClub(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateClub() failed: %v", err)
	}
	return c
}
