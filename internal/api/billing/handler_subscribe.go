package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"accounts-app/internal/api/forms"
	"accounts-app/internal/api/pages"
	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/billing"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
)

type subscribeForm struct {
	CardToken string `form:"card_token" binding:"required"`
}

// Subscribe serves GET and POST /accounts/subscribe. It is routed behind
// RequireLogin.
func (h *Handler) Subscribe(c *gin.Context) {
	const op = "api.billing.Subscribe"

	user := middleware.CurrentUser(c)
	log := h.log.With(slog.String("op", op), slog.Uint64("user_id", uint64(user.ID)))

	now := h.now()
	if user.Profile.HasActiveSubscription(now) {
		h.sessions.AddFlash(c, session.FlashInfo, "You already have an active subscription")
		c.Redirect(http.StatusFound, paths.Profile)
		return
	}

	if c.Request.Method != http.MethodPost {
		h.renderSubscribe(c, http.StatusOK, forms.Errors{})
		return
	}

	var form subscribeForm
	if err := c.ShouldBind(&form); err != nil {
		metrics.SubscriptionChanges.WithLabelValues("subscribe", "invalid").Inc()
		h.sessions.AddFlash(c, session.FlashError, "Please provide a card to subscribe with")
		h.renderSubscribe(c, http.StatusOK, forms.FromBinding(err))
		return
	}

	customerID, err := h.charge(c, user.Email, user.Profile.CustomerID, form.CardToken)
	switch {
	case errors.Is(err, billing.ErrCardDeclined):
		metrics.SubscriptionChanges.WithLabelValues("subscribe", "declined").Inc()
		log.Info("card declined", slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "Your card was declined!")
		h.renderSubscribe(c, http.StatusPaymentRequired, forms.Errors{})
		return
	case err != nil:
		metrics.SubscriptionChanges.WithLabelValues("subscribe", "provider_error").Inc()
		log.Error("failed to subscribe customer", slog.Any("error", err))
		h.sessions.AddFlash(c, session.FlashError, "We were unable to take a payment with that card!")
		h.renderSubscribe(c, http.StatusBadGateway, forms.Errors{})
		return
	}

	profile := user.Profile
	end := billing.NextSubscriptionEnd(now)
	profile.CustomerID = &customerID
	profile.SubscriptionEnd = &end

	if err := h.repo.SaveProfile(c.Request.Context(), &profile); err != nil {
		// The customer now exists and is paying; support has to reconcile by id.
		metrics.SubscriptionChanges.WithLabelValues("subscribe", "store_error").Inc()
		log.Error("payment taken but profile not saved",
			slog.String("customer_id", customerID),
			slog.Any("error", err),
		)
		h.sessions.AddFlash(c, session.FlashError, "Your payment was taken but we could not update your account. Please contact support.")
		c.Redirect(http.StatusFound, paths.Profile)
		return
	}

	metrics.SubscriptionChanges.WithLabelValues("subscribe", "success").Inc()
	log.Info("subscription created", slog.String("customer_id", customerID))
	h.sessions.AddFlash(c, session.FlashSuccess, "You have successfully paid")
	c.Redirect(http.StatusFound, paths.Profile)
}

// charge subscribes the user, reusing their billing customer when one is
// already linked. A customer deleted on the provider side is replaced.
func (h *Handler) charge(c *gin.Context, email string, existing *string, cardToken string) (string, error) {
	ctx := c.Request.Context()
	if existing != nil && *existing != "" {
		err := h.provider.Resubscribe(ctx, *existing, cardToken, h.plan)
		if !errors.Is(err, billing.ErrCustomerNotFound) {
			return *existing, err
		}
		h.log.Warn("linked customer is gone, creating a new one",
			slog.String("op", "api.billing.charge"),
			slog.String("customer_id", *existing),
		)
	}
	return h.provider.CreateCustomer(ctx, email, cardToken, h.plan)
}

func (h *Handler) renderSubscribe(c *gin.Context, status int, errs forms.Errors) {
	pages.Render(c, h.sessions, status, "subscribe.html", gin.H{
		"Title":       "Subscribe",
		"Form":        subscribeForm{},
		"Errors":      errs,
		"Publishable": h.publishable,
	})
}
