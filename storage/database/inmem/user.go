package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

type userRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, phone string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if contains(excludedIDs, usr.ID) {
			continue
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
		if phone != "" && usr.Phone == phone {
			return user.ErrPhoneExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.table {
		if (filter.Email != "" && usr.Email == filter.Email) || (filter.Email == "" && filter.Phone != "" && usr.Phone == filter.Phone) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func matchUser(usr *user.User, f *user.QueryFilter) bool {
	if f == nil {
		return true
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(usr.Name), s) && !strings.Contains(strings.ToLower(usr.Email), s) &&
			!strings.Contains(usr.Phone, s) {
			return false
		}
	}
	if len(f.Roles) > 0 {
		var ok bool
		for _, role := range f.Roles {
			if usr.Role == role {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.IsActive != nil && usr.IsActive != *f.IsActive {
		return false
	}
	if !f.CreatedFrom.IsZero() && usr.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && usr.CreatedAt.After(f.CreatedTo) {
		return false
	}
	if f.IDs != nil && !contains(f.IDs, usr.ID) {
		return false
	}

	if f.Subject != "" || f.City != "" || f.Verified != nil || f.MinRating > 0 {
		p, ok := usr.TeacherProfile()
		if !ok {
			return false
		}
		if f.Subject != "" && !p.TeachesSubject(f.Subject) {
			return false
		}
		if f.City != "" && !strings.EqualFold(p.City, f.City) {
			return false
		}
		if f.Verified != nil && p.IsVerified != *f.Verified {
			return false
		}
		if p.Rating < f.MinRating {
			return false
		}
	}
	return true
}

func rating(usr user.User) float64 {
	p, _ := usr.TeacherProfile()
	return p.Rating
}

// compareUsers returns -1, 0 or 1 comparing `a` & `b` on the column `field`.
func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(string(a.Role), string(b.Role))
	case "is_active":
		return compareBools(a.IsActive, b.IsActive)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "last_login":
		return a.LastLogin.Compare(b.LastLogin)
	case "rating":
		return compareFloats(rating(a), rating(b))
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.table {
		if matchUser(usr, filter) {
			users = append(users, *usr)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
