package club

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
)

var (
	ErrNotFound             = errors.New("ukm not found")
	ErrNameExists           = errors.New("an ukm with this name already exists")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryNameExists   = errors.New("a category with this name already exists")
	ErrCategoryInUse        = errors.New("category is still used by some ukm")
	errCategoryInUseMessage = "cannot delete a category that still has ukm, move or delete them first"
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excludedClubs ...Club) error
		CreateClub(ctx context.Context, c Club) (Club, error)
		// FilterClubs applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Club.Name or Club.Description.
		FilterClubs(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Club, error)
		GetClubByID(ctx context.Context, id string) (Club, error)
		UpdateClub(ctx context.Context, c Club) (Club, error)
		DeleteClubsByID(ctx context.Context, ids ...string) error

		CheckCategoryNameUniqueness(ctx context.Context, name string, excludedCategories ...Category) error
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		QueryAllCategories(ctx context.Context) ([]Category, error)
		GetCategoryByID(ctx context.Context, id string) (Category, error)
		UpdateCategory(ctx context.Context, cat Category) (Category, error)
		// DeleteCategory fails with ErrCategoryInUse while a Club references the category.
		DeleteCategory(ctx context.Context, id string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, name string, exclClubs ...Club) error
		CheckCategory(ctx context.Context, categoryID string) error
		Create(ctx context.Context, nc NewClub) (Club, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Club, error)
		GetByID(ctx context.Context, id string) (Club, error)
		Update(ctx context.Context, c Club, uc UpdateClub) (Club, error)
		Delete(ctx context.Context, ids ...string) error

		CheckCategoryUniqueness(ctx context.Context, name string, exclCategories ...Category) error
		QueryCategories(ctx context.Context) ([]Category, error)
		GetCategoryByID(ctx context.Context, id string) (Category, error)
		CreateCategory(ctx context.Context, nc NewCategory) (Category, error)
		UpdateCategory(ctx context.Context, cat Category, nc NewCategory) (Category, error)
		DeleteCategory(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var (
	_ Service = (*service)(nil)

	nowFunc = time.Now
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, name string, exclClubs ...Club) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, exclClubs...); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking uniqueness")
	}
	return nil
}

func (svc *service) CheckCategory(ctx context.Context, categoryID string) error {
	if _, err := svc.GetCategoryByID(ctx, categoryID); err != nil {
		if errors.Cause(err) == ErrCategoryNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "category_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding category")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewClub) (Club, error) {
	now := nowFunc().UTC()
	c := Club{
		ID:            uuid.New().String(),
		Name:          nc.Name,
		Description:   nc.Description,
		CategoryID:    nc.CategoryID,
		LogoURL:       core.StringPtr(nc.LogoURL),
		ContactPerson: nc.ContactPerson,
		ContactEmail:  nc.ContactEmail,
		ContactPhone:  nc.ContactPhone,
		Achievements:  nc.Achievements,
		Activities:    nc.Activities,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateClub(ctx, c)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Club, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterClubs(ctx, filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Club, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Club{}, ErrNotFound
	}
	return svc.repo.GetClubByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, c Club, uc UpdateClub) (Club, error) {
	uc.apply(&c)
	c.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateClub(ctx, c)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return svc.repo.DeleteClubsByID(ctx, valid...)
}

func (svc *service) CheckCategoryUniqueness(ctx context.Context, name string, exclCategories ...Category) error {
	if err := svc.repo.CheckCategoryNameUniqueness(ctx, name, exclCategories...); err != nil {
		if errors.Cause(err) == ErrCategoryNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking uniqueness")
	}
	return nil
}

func (svc *service) QueryCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryAllCategories(ctx)
}

func (svc *service) GetCategoryByID(ctx context.Context, id string) (Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Category{}, ErrCategoryNotFound
	}
	return svc.repo.GetCategoryByID(ctx, id)
}

func (svc *service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	cat := Category{
		ID:          uuid.New().String(),
		Name:        nc.Name,
		Description: nc.Description,
		Icon:        nc.Icon,
		CreatedAt:   nowFunc().UTC(),
	}
	return svc.repo.CreateCategory(ctx, cat)
}

func (svc *service) UpdateCategory(ctx context.Context, cat Category, nc NewCategory) (Category, error) {
	cat.Name = nc.Name
	cat.Description = nc.Description
	cat.Icon = nc.Icon
	return svc.repo.UpdateCategory(ctx, cat)
}

func (svc *service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrCategoryNotFound
	}
	if err := svc.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Cause(err) == ErrCategoryInUse {
			return core.NewValidationError(err, core.FieldError{Field: "id", Error: errCategoryInUseMessage})
		}
		return err
	}
	return nil
}
