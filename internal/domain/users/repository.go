package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username or email already taken")
)

type Repository interface {
	// Create inserts the user together with its profile.
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	// FindByLogin matches either the username or the email address.
	FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByGoogleSub(ctx context.Context, sub string) (*User, error)
	FindProfileByCustomerID(ctx context.Context, customerID string) (*Profile, error)
	SaveProfile(ctx context.Context, p *Profile) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *gormRepository) Save(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Omit("Profile").Save(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uint) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	login := strings.TrimSpace(usernameOrEmail)
	return r.first(ctx, "username = ? OR LOWER(email) = LOWER(?)", login, login)
}

func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.first(ctx, "username = ?", strings.TrimSpace(username))
}

func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", strings.TrimSpace(email))
}

func (r *gormRepository) FindByGoogleSub(ctx context.Context, sub string) (*User, error) {
	return r.first(ctx, "google_sub = ?", sub)
}

func (r *gormRepository) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where(query, args...).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *gormRepository) FindProfileByCustomerID(ctx context.Context, customerID string) (*Profile, error) {
	var profile Profile
	err := r.db.WithContext(ctx).Where("stripe_id = ?", customerID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile by customer %s: %w", customerID, err)
	}
	return &profile, nil
}

// SaveProfile writes the whole row; concurrent writers are last-write-wins.
func (r *gormRepository) SaveProfile(ctx context.Context, p *Profile) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("save profile %d: %w", p.ID, err)
	}
	return nil
}
