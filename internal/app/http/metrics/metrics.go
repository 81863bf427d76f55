package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts webhook deliveries by outcome
	// (extended|ignored|bad_signature|bad_payload|unknown_customer|error).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "webhook_events_total",
		Help:      "Subscription webhook deliveries by outcome.",
	}, []string{"outcome"})

	// SubscriptionChanges counts subscribe/cancel attempts by outcome.
	SubscriptionChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "subscription_changes_total",
		Help:      "Subscribe and cancel attempts by outcome.",
	}, []string{"operation", "outcome"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "logins_total",
		Help:      "Login attempts by method and outcome.",
	}, []string{"method", "outcome"})
)

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
