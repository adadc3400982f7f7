package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
)

var clubOrderingKeys = map[string]func(club.Club) string{
	"name":       func(c club.Club) string { return strings.ToLower(c.Name) },
	"created_at": func(c club.Club) string { return c.CreatedAt.Format(sortableTime) },
	"updated_at": func(c club.Club) string { return c.UpdatedAt.Format(sortableTime) },
}

// clubRepository locks the category table before the club table, always.
type clubRepository struct {
	clubs      *clubTable
	categories *categoryTable
}

var _ club.Repository = (*clubRepository)(nil) // interface compliance check

func NewClubRepository(db *DB) club.Repository {
	return &clubRepository{clubs: db.club, categories: db.category}
}

func (repo *clubRepository) withCategory(c club.Club) club.Club {
	if cat, ok := repo.categories.table[c.CategoryID]; ok {
		c.CategoryName = cat.Name
	}
	return c
}

func (repo *clubRepository) CheckNameUniqueness(_ context.Context, name string, excludedClubs ...club.Club) error {
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	excluded := make(map[string]bool, len(excludedClubs))
	for _, c := range excludedClubs {
		excluded[c.ID] = true
	}
	for _, c := range repo.clubs.table {
		if !excluded[c.ID] && strings.EqualFold(c.Name, name) {
			return club.ErrNameExists
		}
	}
	return nil
}

func (repo *clubRepository) CreateClub(_ context.Context, c club.Club) (club.Club, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.Lock()
	defer repo.clubs.Unlock()

	if _, ok := repo.categories.table[c.CategoryID]; !ok {
		return club.Club{}, club.ErrCategoryNotFound
	}
	c = repo.withCategory(c)
	repo.clubs.table[c.ID] = &c
	return c, nil
}

func (repo *clubRepository) FilterClubs(_ context.Context, filter *club.QueryFilter, ordering ...core.DBOrdering) ([]club.Club, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	clubs := make([]club.Club, 0, len(repo.clubs.table))
	for _, c := range repo.clubs.table {
		if filter.Search != "" && !(containsFold(c.Name, filter.Search) || containsFold(c.Description, filter.Search)) {
			continue
		}
		if filter.CategoryID != "" && c.CategoryID != filter.CategoryID {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		clubs = append(clubs, repo.withCategory(*c))
	}

	sortRows(clubs, clubOrderingKeys, ordering, core.DBOrdering{Field: "name", Ascending: true})
	return clubs, nil
}

func (repo *clubRepository) GetClubByID(_ context.Context, id string) (club.Club, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	if c, ok := repo.clubs.table[id]; ok {
		return repo.withCategory(*c), nil
	}
	return club.Club{}, club.ErrNotFound
}

func (repo *clubRepository) UpdateClub(_ context.Context, c club.Club) (club.Club, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.Lock()
	defer repo.clubs.Unlock()

	orig, ok := repo.clubs.table[c.ID]
	if !ok {
		return club.Club{}, club.ErrNotFound
	}
	if _, ok := repo.categories.table[c.CategoryID]; !ok {
		return club.Club{}, club.ErrCategoryNotFound
	}
	c.CreatedAt = orig.CreatedAt
	c = repo.withCategory(c)
	repo.clubs.table[c.ID] = &c
	return c, nil
}

func (repo *clubRepository) DeleteClubsByID(_ context.Context, ids ...string) error {
	repo.clubs.Lock()
	defer repo.clubs.Unlock()
	for _, id := range ids {
		delete(repo.clubs.table, id)
	}
	return nil
}

func (repo *clubRepository) CheckCategoryNameUniqueness(_ context.Context, name string, excludedCategories ...club.Category) error {
	repo.categories.RLock()
	defer repo.categories.RUnlock()

	excluded := make(map[string]bool, len(excludedCategories))
	for _, cat := range excludedCategories {
		excluded[cat.ID] = true
	}
	for _, cat := range repo.categories.table {
		if !excluded[cat.ID] && strings.EqualFold(cat.Name, name) {
			return club.ErrCategoryNameExists
		}
	}
	return nil
}

func (repo *clubRepository) CreateCategory(_ context.Context, cat club.Category) (club.Category, error) {
	repo.categories.Lock()
	defer repo.categories.Unlock()

	repo.categories.table[cat.ID] = &cat
	return cat, nil
}

// clubCount must be called with the club table locked.
func (repo *clubRepository) clubCount(categoryID string) int {
	var n int
	for _, c := range repo.clubs.table {
		if c.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (repo *clubRepository) QueryAllCategories(_ context.Context) ([]club.Category, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	cats := make([]club.Category, 0, len(repo.categories.table))
	for _, cat := range repo.categories.table {
		c := *cat
		c.ClubCount = repo.clubCount(c.ID)
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name) })
	return cats, nil
}

func (repo *clubRepository) GetCategoryByID(_ context.Context, id string) (club.Category, error) {
	repo.categories.RLock()
	defer repo.categories.RUnlock()
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	if cat, ok := repo.categories.table[id]; ok {
		c := *cat
		c.ClubCount = repo.clubCount(c.ID)
		return c, nil
	}
	return club.Category{}, club.ErrCategoryNotFound
}

func (repo *clubRepository) UpdateCategory(_ context.Context, cat club.Category) (club.Category, error) {
	repo.categories.Lock()
	defer repo.categories.Unlock()

	orig, ok := repo.categories.table[cat.ID]
	if !ok {
		return club.Category{}, club.ErrCategoryNotFound
	}
	cat.CreatedAt = orig.CreatedAt
	repo.categories.table[cat.ID] = &cat
	return cat, nil
}

func (repo *clubRepository) DeleteCategory(_ context.Context, id string) error {
	repo.categories.Lock()
	defer repo.categories.Unlock()
	repo.clubs.RLock()
	defer repo.clubs.RUnlock()

	if _, ok := repo.categories.table[id]; !ok {
		return club.ErrCategoryNotFound
	}
	if repo.clubCount(id) > 0 {
		return club.ErrCategoryInUse
	}
	delete(repo.categories.table, id)
	return nil
}
