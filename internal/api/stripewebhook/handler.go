package stripewebhooks

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/domain/billing"
	"accounts-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75/webhook"
)

const maxBodyBytes = 65536

type Handler struct {
	log      *slog.Logger
	repo     users.Repository
	provider billing.Provider
	secret   string
	now      func() time.Time
}

func New(log *slog.Logger, repo users.Repository, provider billing.Provider, webhookSecret string) *Handler {
	return &Handler{
		log:      log,
		repo:     repo,
		provider: provider,
		secret:   webhookSecret,
		now:      time.Now,
	}
}

// SubscriptionsWebhook records a payment notification against the profile
// of the paying customer. Stripe retries anything that is not a 2xx.
func (h *Handler) SubscriptionsWebhook(c *gin.Context) {
	const op = "api.stripewebhook.SubscriptionsWebhook"
	log := h.log.With(slog.String("op", op))

	if h.secret == "" {
		log.Error("STRIPE_WEBHOOK_SECRET not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.WebhookEvents.WithLabelValues("bad_payload").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	err = webhook.ValidatePayloadWithTolerance(payload, c.GetHeader("Stripe-Signature"), h.secret, webhook.DefaultTolerance)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_signature").Inc()
		log.Warn("signature verification failed", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	event, err := parsePaymentEvent(payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("bad_payload").Inc()
		log.Warn("malformed payload", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}
	log = log.With(slog.String("customer_id", event.Customer))

	ctx := c.Request.Context()
	profile, err := h.repo.FindProfileByCustomerID(ctx, event.Customer)
	if errors.Is(err, users.ErrNotFound) {
		metrics.WebhookEvents.WithLabelValues("unknown_customer").Inc()
		log.Warn("no profile for customer")
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown customer"})
		return
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		log.Error("failed to load profile", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load customer"})
		return
	}

	if !event.Paid {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if _, err := h.provider.RetrieveCustomer(ctx, event.Customer); err != nil {
		if errors.Is(err, billing.ErrCustomerNotFound) || errors.Is(err, billing.ErrInvalidRequest) {
			metrics.WebhookEvents.WithLabelValues("unknown_customer").Inc()
			log.Warn("customer rejected by provider", slog.Any("error", err))
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown customer"})
			return
		}
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		log.Error("failed to retrieve customer", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify customer"})
		return
	}

	end := billing.NextSubscriptionEnd(h.now())
	profile.SubscriptionEnd = &end
	if err := h.repo.SaveProfile(ctx, profile); err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		log.Error("failed to extend subscription", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update subscription"})
		return
	}

	metrics.WebhookEvents.WithLabelValues("extended").Inc()
	log.Info("subscription extended", slog.Time("subscription_end", end))
	c.JSON(http.StatusOK, gin.H{"status": "extended"})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
