package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	AuthProvider string    `json:"auth_provider"`
	JoinedAt     time.Time `json:"joined_at"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Plan         string          `json:"plan"`
	Subscription SubscriptionDTO `json:"subscription"`
}

type SubscriptionDTO struct {
	Status      string     `json:"status"` // active|expired|none
	EndsAt      *time.Time `json:"ends_at"`
	DaysLeft    *int       `json:"days_left"`
	HasCustomer bool       `json:"has_customer"`
}
