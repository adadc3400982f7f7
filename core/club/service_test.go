package club_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
	inmemdb "github.com/ukmiverse/ukmiverse/storage/database/inmem"
	"github.com/ukmiverse/ukmiverse/testutil"
)

func setup(t *testing.T) (club.Service, club.Repository) {
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })
	repo := inmemdb.NewClubRepository(db)
	return club.NewService(repo), repo
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	ctx := context.Background()
	seni := testutil.CreateCategory(t, repo, "Seni")

	nc := club.NewClub{Name: " Tari ", CategoryID: seni.ID, LogoURL: "/static/uploads/logos/tari.png", ContactEmail: "TARI@ukm.test"}
	require.NoError(t, nc.Validate(ctx, validate, svc))
	c, err := svc.Create(ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "Tari", c.Name)
	assert.Equal(t, "Seni", c.CategoryName)
	assert.Equal(t, "tari@ukm.test", c.ContactEmail)
	assert.True(t, c.IsActive)
	require.NotNil(t, c.LogoURL)
	assert.Equal(t, "Tari", c.LogoSubject().Name)
	assert.Equal(t, "/static/uploads/logos/tari.png", c.LogoSubject().Primary)

	dup := club.NewClub{Name: "TARI", CategoryID: seni.ID}
	assert.Equal(t, "name", fieldOf(t, dup.Validate(ctx, validate, svc)))

	orphan := club.NewClub{Name: "Musik", CategoryID: "8d0c7d63-5a53-4b8f-9d7e-0b8a7a6f2f11"}
	assert.Equal(t, "category_id", fieldOf(t, orphan.Validate(ctx, validate, svc)))

	noLogo, err := svc.Create(ctx, club.NewClub{Name: "Musik", CategoryID: seni.ID})
	require.NoError(t, err)
	assert.Nil(t, noLogo.LogoURL)
}

func TestService_Update(t *testing.T) {
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	ctx := context.Background()
	seni := testutil.CreateCategory(t, repo, "Seni")
	olahraga := testutil.CreateCategory(t, repo, "Olahraga")
	logo := "https://cdn.test/tari.png"
	tari := testutil.CreateClub(t, repo, "Tari", seni, &logo, true)
	testutil.CreateClub(t, repo, "Futsal", olahraga, nil, true)

	name, cat, blank := "Tari Tradisional", olahraga.ID, " "
	uc := club.UpdateClub{Name: &name, CategoryID: &cat, LogoURL: &blank}
	require.NoError(t, uc.Validate(ctx, tari, validate, svc))
	got, err := svc.Update(ctx, tari, uc)
	require.NoError(t, err)
	assert.Equal(t, "Tari Tradisional", got.Name)
	assert.Equal(t, "Olahraga", got.CategoryName)
	assert.Equal(t, "UKM Tari", got.Description) // untouched
	assert.Nil(t, got.LogoURL)

	taken := "futsal"
	uc = club.UpdateClub{Name: &taken}
	assert.Equal(t, "name", fieldOf(t, uc.Validate(ctx, got, validate, svc)))

	empty := ""
	uc = club.UpdateClub{Name: &empty}
	assert.Equal(t, "name", fieldOf(t, uc.Validate(ctx, got, validate, svc)))
}

func TestService_Query(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	seni := testutil.CreateCategory(t, repo, "Seni")
	olahraga := testutil.CreateCategory(t, repo, "Olahraga")
	tari := testutil.CreateClub(t, repo, "Tari", seni, nil, true)
	futsal := testutil.CreateClub(t, repo, "Futsal", olahraga, nil, true)
	paduan := testutil.CreateClub(t, repo, "Paduan Suara", seni, nil, false)

	names := func(clubs []club.Club) []string {
		res := make([]string, len(clubs))
		for i, c := range clubs {
			res[i] = c.Name
		}
		return res
	}

	inactive := false
	tests := []struct {
		name     string
		filter   *club.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", want: []string{futsal.Name, paduan.Name, tari.Name}},
		{name: "search description", filter: &club.QueryFilter{Search: "ukm fut"}, want: []string{futsal.Name}},
		{name: "category", filter: &club.QueryFilter{CategoryID: seni.ID}, want: []string{paduan.Name, tari.Name}},
		{name: "inactive", filter: &club.QueryFilter{IsActive: &inactive}, want: []string{paduan.Name}},
		{name: "name desc", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{tari.Name, paduan.Name, futsal.Name}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	_, err := svc.GetByID(ctx, "nope")
	assert.Equal(t, club.ErrNotFound, errors.Cause(err))

	require.NoError(t, svc.Delete(ctx, tari.ID, "nope"))
	_, err = svc.GetByID(ctx, tari.ID)
	assert.Equal(t, club.ErrNotFound, errors.Cause(err))
}

func TestService_Categories(t *testing.T) {
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	ctx := context.Background()

	nc := club.NewCategory{Name: " Seni ", Icon: "🎨"}
	require.NoError(t, nc.Validate(ctx, validate, svc))
	seni, err := svc.CreateCategory(ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "Seni", seni.Name)

	olahraga, err := svc.CreateCategory(ctx, club.NewCategory{Name: "Olahraga"})
	require.NoError(t, err)

	dup := club.NewCategory{Name: "seni"}
	assert.Equal(t, "name", fieldOf(t, dup.Validate(ctx, validate, svc)))

	// renaming to its own name is not a conflict
	same := club.NewCategory{Name: "Seni", Description: "Seni & budaya"}
	require.NoError(t, same.Validate(ctx, validate, svc, seni))
	seni, err = svc.UpdateCategory(ctx, seni, same)
	require.NoError(t, err)
	assert.Equal(t, "Seni & budaya", seni.Description)

	testutil.CreateClub(t, repo, "Tari", seni, nil, true)

	cats, err := svc.QueryCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Olahraga", cats[0].Name)
	assert.Equal(t, 0, cats[0].ClubCount)
	assert.Equal(t, 1, cats[1].ClubCount)

	assert.Equal(t, "id", fieldOf(t, svc.DeleteCategory(ctx, seni.ID)))
	assert.Equal(t, club.ErrCategoryNotFound, errors.Cause(svc.DeleteCategory(ctx, "nope")))
	require.NoError(t, svc.DeleteCategory(ctx, olahraga.ID))

	_, err = svc.GetCategoryByID(ctx, olahraga.ID)
	assert.Equal(t, club.ErrCategoryNotFound, errors.Cause(err))
}
