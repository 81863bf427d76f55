package users

import (
	"time"

	"accounts-app/internal/domain/users"
)

const (
	StatusActive  = "active"
	StatusExpired = "expired"
	StatusNone    = "none"
)

func BuildMeResponse(now time.Time, u users.User, plan string) MeResponse {
	return MeResponse{
		User: UserDTO{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			AuthProvider: u.AuthProvider,
			JoinedAt:     u.CreatedAt,
		},
		Billing: BillingDTO{
			Plan:         plan,
			Subscription: BuildSubscriptionDTO(now, u.Profile),
		},
	}
}

func BuildSubscriptionDTO(now time.Time, p users.Profile) SubscriptionDTO {
	dto := SubscriptionDTO{
		Status:      StatusNone,
		EndsAt:      p.SubscriptionEnd,
		HasCustomer: p.HasCustomer(),
	}
	if p.SubscriptionEnd == nil {
		return dto
	}

	d := 0
	if p.HasActiveSubscription(now) {
		dto.Status = StatusActive
		d = int(p.SubscriptionEnd.Sub(now).Hours() / 24)
	} else {
		dto.Status = StatusExpired
	}
	dto.DaysLeft = &d
	return dto
}
