package inmemdb

import (
	"context"
	"strings"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
)

var userOrderingKeys = map[string]func(user.User) string{
	"username":   func(u user.User) string { return u.Username },
	"email":      func(u user.User) string { return u.Email },
	"full_name":  func(u user.User) string { return strings.ToLower(u.FullName) },
	"created_at": func(u user.User) string { return u.CreatedAt.Format(sortableTime) },
	"updated_at": func(u user.User) string { return u.UpdatedAt.Format(sortableTime) },
}

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) FilterUsers(_ context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	role, hasRole := filter.RoleFilter()
	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.query() {
		if filter.Search != "" &&
			!(containsFold(usr.FullName, filter.Search) || containsFold(usr.Username, filter.Search) || containsFold(usr.Email, filter.Search)) {
			continue
		}
		if hasRole && usr.Role != role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		users = append(users, usr)
	}

	sortRows(users, userOrderingKeys, ordering, core.DBOrdering{Field: "username", Ascending: true})
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == username) || (usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = origUsr.CreatedAt
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
