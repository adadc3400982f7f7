package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
)

const (
	clubSelect = `SELECT c.id, c.name, c.description, c.category_id, COALESCE(cat.name, '') AS category_name,
	c.logo_url, c.contact_person, c.contact_email, c.contact_phone, c.achievements, c.activities,
	c.is_active, c.created_at, c.updated_at
	FROM clubs c LEFT JOIN categories cat ON cat.id = c.category_id`

	categorySelect = `SELECT cat.id, cat.name, cat.description, cat.icon, cat.created_at,
	(SELECT COUNT(*) FROM clubs c WHERE c.category_id = cat.id) AS club_count
	FROM categories cat`

	pqForeignKeyViolation = "23503"
)

type clubRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	Description   string      `db:"description"`
	CategoryID    string      `db:"category_id"`
	CategoryName  string      `db:"category_name"`
	LogoURL       null.String `db:"logo_url"`
	ContactPerson string      `db:"contact_person"`
	ContactEmail  string      `db:"contact_email"`
	ContactPhone  string      `db:"contact_phone"`
	Achievements  string      `db:"achievements"`
	Activities    string      `db:"activities"`
	IsActive      bool        `db:"is_active"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

type clubRepository struct {
	db sqlx.ExtContext
}

var _ club.Repository = (*clubRepository)(nil) // interface compliance check

func NewClubRepository(db sqlx.ExtContext) club.Repository {
	return &clubRepository{db: db}
}

func (repo clubRepository) toRow(c club.Club) clubRow {
	return clubRow{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		CategoryID:    c.CategoryID,
		LogoURL:       null.StringFromPtr(c.LogoURL),
		ContactPerson: c.ContactPerson,
		ContactEmail:  c.ContactEmail,
		ContactPhone:  c.ContactPhone,
		Achievements:  c.Achievements,
		Activities:    c.Activities,
		IsActive:      c.IsActive,
		CreatedAt:     null.NewTime(c.CreatedAt.UTC(), !c.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(c.UpdatedAt.UTC(), !c.UpdatedAt.IsZero()),
	}
}

func (repo clubRepository) fromRow(row clubRow) club.Club {
	return club.Club{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		CategoryID:    row.CategoryID,
		CategoryName:  row.CategoryName,
		LogoURL:       row.LogoURL.Ptr(),
		ContactPerson: row.ContactPerson,
		ContactEmail:  row.ContactEmail,
		ContactPhone:  row.ContactPhone,
		Achievements:  row.Achievements,
		Activities:    row.Activities,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

// trapErr maps "no rows" to notFound and foreign key violations to club.ErrCategoryNotFound.
func (repo clubRepository) trapErr(err error, notFound error, msg string) error {
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows {
		return notFound
	}
	if pqErr, ok := cause.(*pq.Error); ok && pqErr.Code == pqForeignKeyViolation {
		return club.ErrCategoryNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo clubRepository) excludedIDs(q string, args []interface{}, ids []string) (string, []interface{}, error) {
	if len(ids) == 0 {
		return repo.db.Rebind(q), args, nil
	}
	q, args, err := sqlx.In(q+" AND id NOT IN (?)", append(args, ids)...)
	if err != nil {
		return "", nil, err
	}
	return repo.db.Rebind(q), args, nil
}

func (repo clubRepository) exists(ctx context.Context, q string, args ...interface{}) (bool, error) {
	var found bool
	if err := sqlx.GetContext(ctx, repo.db, &found, "SELECT EXISTS ("+q+")", args...); err != nil {
		return false, err
	}
	return found, nil
}

func (repo clubRepository) CheckNameUniqueness(ctx context.Context, name string, excludedClubs ...club.Club) error {
	ids := make([]string, 0, len(excludedClubs))
	for _, c := range excludedClubs {
		ids = append(ids, c.ID)
	}
	q, args, err := repo.excludedIDs("SELECT 1 FROM clubs WHERE LOWER(name) = LOWER(?)", []interface{}{name}, ids)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	found, err := repo.exists(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "checking ukm uniqueness")
	}
	if found {
		return club.ErrNameExists
	}
	return nil
}

func (repo clubRepository) CreateClub(ctx context.Context, c club.Club) (club.Club, error) {
	q := `INSERT INTO clubs (id, name, description, category_id, logo_url, contact_person, contact_email,
		contact_phone, achievements, activities, is_active, created_at, updated_at) VALUES (
		:id, :name, :description, :category_id, :logo_url, :contact_person, :contact_email,
		:contact_phone, :achievements, :activities, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(c)); err != nil {
		return club.Club{}, repo.trapErr(err, club.ErrNotFound, "inserting ukm")
	}
	return repo.GetClubByID(ctx, c.ID)
}

func (repo clubRepository) FilterClubs(ctx context.Context, filter *club.QueryFilter, ordering ...core.DBOrdering) ([]club.Club, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(c.name ILIKE ? OR c.description ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.CategoryID != "" {
			where = append(where, "c.category_id::text = ?")
			args = append(args, filter.CategoryID)
		}
		if filter.IsActive != nil {
			where = append(where, "c.is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	q := clubSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + qualify("c", core.OrderingClause(ordering, club.OrderingFields, "name ASC"))

	var rows []clubRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying ukm")
	}
	clubs := make([]club.Club, 0, len(rows))
	for _, row := range rows {
		clubs = append(clubs, repo.fromRow(row))
	}
	return clubs, nil
}

func (repo clubRepository) GetClubByID(ctx context.Context, id string) (club.Club, error) {
	var row clubRow
	if err := sqlx.GetContext(ctx, repo.db, &row, repo.db.Rebind(clubSelect+" WHERE c.id = ?"), id); err != nil {
		return club.Club{}, repo.trapErr(err, club.ErrNotFound, "finding ukm by ID")
	}
	return repo.fromRow(row), nil
}

func (repo clubRepository) UpdateClub(ctx context.Context, c club.Club) (club.Club, error) {
	q := `UPDATE clubs SET
		name = :name, description = :description, category_id = :category_id, logo_url = :logo_url,
		contact_person = :contact_person, contact_email = :contact_email, contact_phone = :contact_phone,
		achievements = :achievements, activities = :activities, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(c))
	if err != nil {
		return club.Club{}, repo.trapErr(err, club.ErrNotFound, "updating ukm")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return club.Club{}, club.ErrNotFound
	}
	return repo.GetClubByID(ctx, c.ID)
}

func (repo clubRepository) DeleteClubsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM clubs WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting ukm")
	}
	return nil
}

func (repo clubRepository) CheckCategoryNameUniqueness(ctx context.Context, name string, excludedCategories ...club.Category) error {
	ids := make([]string, 0, len(excludedCategories))
	for _, cat := range excludedCategories {
		ids = append(ids, cat.ID)
	}
	q, args, err := repo.excludedIDs("SELECT 1 FROM categories WHERE LOWER(name) = LOWER(?)", []interface{}{name}, ids)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	found, err := repo.exists(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "checking category uniqueness")
	}
	if found {
		return club.ErrCategoryNameExists
	}
	return nil
}

func (repo clubRepository) CreateCategory(ctx context.Context, cat club.Category) (club.Category, error) {
	q := `INSERT INTO categories (id, name, description, icon, created_at)
		VALUES (:id, :name, :description, :icon, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, cat); err != nil {
		return club.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo clubRepository) QueryAllCategories(ctx context.Context) ([]club.Category, error) {
	cats := make([]club.Category, 0)
	if err := sqlx.SelectContext(ctx, repo.db, &cats, categorySelect+" ORDER BY LOWER(cat.name) ASC"); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	return cats, nil
}

func (repo clubRepository) GetCategoryByID(ctx context.Context, id string) (club.Category, error) {
	var cat club.Category
	if err := sqlx.GetContext(ctx, repo.db, &cat, repo.db.Rebind(categorySelect+" WHERE cat.id = ?"), id); err != nil {
		return club.Category{}, repo.trapErr(err, club.ErrCategoryNotFound, "finding category by ID")
	}
	return cat, nil
}

func (repo clubRepository) UpdateCategory(ctx context.Context, cat club.Category) (club.Category, error) {
	q := `UPDATE categories SET name = :name, description = :description, icon = :icon WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, cat)
	if err != nil {
		return club.Category{}, errors.Wrap(err, "updating category")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return club.Category{}, club.ErrCategoryNotFound
	}
	return repo.GetCategoryByID(ctx, cat.ID)
}

func (repo clubRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqForeignKeyViolation {
			return club.ErrCategoryInUse
		}
		return errors.Wrap(err, "deleting category")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return club.ErrCategoryNotFound
	}
	return nil
}

// qualify prefixes every column of an ORDER BY list with table alias t.
func qualify(t, orderBy string) string {
	parts := strings.Split(orderBy, ", ")
	for i, p := range parts {
		parts[i] = t + "." + p
	}
	return strings.Join(parts, ", ")
}
