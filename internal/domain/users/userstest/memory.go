// Package userstest provides an in-memory users.Repository for handler tests.
package userstest

import (
	"context"
	"strings"
	"sync"
	"time"

	"accounts-app/internal/domain/users"
)

type Repository struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*users.User

	// Err, when set, is returned by every write.
	Err error
}

func NewRepository() *Repository {
	return &Repository{byID: map[uint]*users.User{}}
}

func (r *Repository) Create(_ context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	for _, existing := range r.byID {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return users.ErrDuplicate
		}
		if u.GoogleSub != nil && existing.GoogleSub != nil && *existing.GoogleSub == *u.GoogleSub {
			return users.ErrDuplicate
		}
	}

	r.nextID++
	now := time.Now()
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	u.Profile.ID = r.nextID
	u.Profile.UserID = r.nextID
	r.byID[u.ID] = clone(u)
	return nil
}

func (r *Repository) Save(_ context.Context, u *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.byID[u.ID]
	if !ok {
		return users.ErrNotFound
	}
	c := clone(u)
	c.Profile = stored.Profile
	r.byID[u.ID] = c
	return nil
}

func (r *Repository) FindByID(_ context.Context, id uint) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.ID == id })
}

func (r *Repository) FindByLogin(_ context.Context, login string) (*users.User, error) {
	login = strings.TrimSpace(login)
	return r.find(func(u *users.User) bool {
		return u.Username == login || strings.EqualFold(u.Email, login)
	})
}

func (r *Repository) FindByUsername(_ context.Context, username string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.Username == username })
}

func (r *Repository) FindByEmail(_ context.Context, email string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Repository) FindByGoogleSub(_ context.Context, sub string) (*users.User, error) {
	return r.find(func(u *users.User) bool { return u.GoogleSub != nil && *u.GoogleSub == sub })
}

func (r *Repository) FindProfileByCustomerID(_ context.Context, customerID string) (*users.Profile, error) {
	u, err := r.find(func(u *users.User) bool {
		return u.Profile.CustomerID != nil && *u.Profile.CustomerID == customerID
	})
	if err != nil {
		return nil, err
	}
	return &u.Profile, nil
}

func (r *Repository) SaveProfile(_ context.Context, p *users.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.byID[p.UserID]
	if !ok {
		return users.ErrNotFound
	}
	u.Profile = cloneProfile(*p)
	return nil
}

// Profile returns a copy of the stored profile for assertions.
func (r *Repository) Profile(userID uint) users.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[userID]; ok {
		return cloneProfile(u.Profile)
	}
	return users.Profile{}
}

func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Repository) find(match func(*users.User) bool) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, users.ErrNotFound
}

func clone(u *users.User) *users.User {
	c := *u
	if u.Password != nil {
		p := *u.Password
		c.Password = &p
	}
	if u.GoogleSub != nil {
		s := *u.GoogleSub
		c.GoogleSub = &s
	}
	c.Profile = cloneProfile(u.Profile)
	return &c
}

func cloneProfile(p users.Profile) users.Profile {
	c := p
	if p.CustomerID != nil {
		id := *p.CustomerID
		c.CustomerID = &id
	}
	if p.SubscriptionEnd != nil {
		end := *p.SubscriptionEnd
		c.SubscriptionEnd = &end
	}
	return c
}
