package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/billing"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

// CancelSubscription ends the subscription immediately and always lands
// back on the profile page.
func (h *Handler) CancelSubscription(c *gin.Context) {
	const op = "api.billing.CancelSubscription"

	user := middleware.CurrentUser(c)
	log := h.log.With(slog.String("op", op), slog.Uint64("user_id", uint64(user.ID)))
	defer c.Redirect(http.StatusFound, paths.Profile)

	if !user.Profile.HasCustomer() {
		metrics.SubscriptionChanges.WithLabelValues("cancel", "no_customer").Inc()
		h.sessions.AddFlash(c, session.FlashError, "You do not have an active subscription")
		return
	}
	customerID := *user.Profile.CustomerID

	if err := h.provider.CancelSubscription(c.Request.Context(), customerID); err != nil {
		log.Error("failed to cancel subscription", slog.String("customer_id", customerID), slog.Any("error", err))
		if errors.Is(err, billing.ErrCustomerNotFound) {
			metrics.SubscriptionChanges.WithLabelValues("cancel", "unknown_customer").Inc()
			h.sessions.AddFlash(c, session.FlashError, "We could not find your billing account")
			return
		}
		metrics.SubscriptionChanges.WithLabelValues("cancel", "provider_error").Inc()
		h.sessions.AddFlash(c, session.FlashError, "We were unable to cancel your subscription")
		return
	}

	profile := user.Profile
	now := h.now()
	profile.SubscriptionEnd = &now
	if err := h.repo.SaveProfile(c.Request.Context(), &profile); err != nil {
		metrics.SubscriptionChanges.WithLabelValues("cancel", "store_error").Inc()
		log.Error("subscription cancelled but profile not saved", slog.String("customer_id", customerID), slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "We were unable to cancel your subscription")
		return
	}

	metrics.SubscriptionChanges.WithLabelValues("cancel", "success").Inc()
	log.Info("subscription cancelled", slog.String("customer_id", customerID))
	h.sessions.AddFlash(c, session.FlashSuccess, "Your subscription has been cancelled")
}
