package billing

import (
	"log/slog"
	"time"

	"accounts-app/internal/domain/billing"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"
)

type Handler struct {
	log         *slog.Logger
	repo        users.Repository
	sessions    *session.Store
	provider    billing.Provider
	plan        string
	publishable string
	now         func() time.Time
}

func New(log *slog.Logger, repo users.Repository, sessions *session.Store, provider billing.Provider, plan, publishableKey string) *Handler {
	return &Handler{
		log:         log,
		repo:        repo,
		sessions:    sessions,
		provider:    provider,
		plan:        plan,
		publishable: publishableKey,
		now:         time.Now,
	}
}
