package users

import (
	"time"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User is the local account. Credentials are a bcrypt hash; Google-only
// accounts have no password.
type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"not null;uniqueIndex:idx_users_username"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	IsActive     bool    `gorm:"not null;default:true"`

	Profile Profile `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile carries the billing state of a User.
type Profile struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex:idx_profiles_user_id"`

	// Stripe customer id, set once the customer exists on Stripe's side.
	CustomerID      *string `gorm:"column:stripe_id;uniqueIndex:idx_profiles_stripe_id"`
	SubscriptionEnd *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Profile) HasActiveSubscription(now time.Time) bool {
	return p.SubscriptionEnd != nil && p.SubscriptionEnd.After(now)
}

func (p *Profile) HasCustomer() bool {
	return p.CustomerID != nil && *p.CustomerID != ""
}

// HasPassword is false for accounts created through Google sign-in.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}
