package routes

import (
	"log/slog"
	"net/http"
	"time"

	"accounts-app/config"
	authapi "accounts-app/internal/api/auth"
	"accounts-app/internal/api/billing"
	"accounts-app/internal/api/pages"
	stripewebhooks "accounts-app/internal/api/stripewebhook"
	"accounts-app/internal/api/users"
	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/app/http/paths"
	billingdomain "accounts-app/internal/domain/billing"
	usersdomain "accounts-app/internal/domain/users"
	"accounts-app/internal/session"
	"accounts-app/internal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Config   *config.Config
	Log      *slog.Logger
	Users    usersdomain.Repository
	Provider billingdomain.Provider
	Sessions *session.Store
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	cfg := deps.Config

	pagesH := pages.New(deps.Users, deps.Sessions)
	authH := authapi.New(deps.Log, deps.Users, deps.Sessions, cfg.JWTSecret, cfg.GoogleEnabled())
	usersH := users.New(deps.Log, deps.Users, deps.Sessions, cfg.Stripe.PlanID)
	billingH := billing.New(deps.Log, deps.Users, deps.Sessions, deps.Provider, cfg.Stripe.PlanID, cfg.Stripe.PublishableKey)
	webhookH := stripewebhooks.New(deps.Log, deps.Users, deps.Provider, cfg.Stripe.WebhookSecret)

	r.SetHTMLTemplate(web.Templates())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	// Signed by Stripe over the raw body, so it must not be sanitized.
	r.POST(paths.Webhook, webhookH.SubscriptionsWebhook)

	r.GET(paths.Index, pagesH.Index)

	// ✅ Apply input sanitization to public routes only
	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())
	public.GET(paths.Login, authH.Login)
	public.POST(paths.Login, authH.Login)
	public.GET(paths.Register, authH.Register)
	public.POST(paths.Register, authH.Register)
	public.GET(paths.Logout, authH.Logout)
	public.POST(paths.Logout, authH.Logout)

	if cfg.GoogleEnabled() {
		googleH := authapi.NewGoogle(deps.Log, deps.Users, deps.Sessions, cfg.Google, cfg.IsProd())
		public.GET("/auth/google", googleH.Start)
		public.GET("/auth/google/callback", googleH.Callback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.RequireLogin(deps.Sessions, deps.Users))
	auth.GET(paths.Profile, usersH.Profile)
	auth.GET(paths.Subscribe, billingH.Subscribe)
	auth.POST(paths.Subscribe, billingH.Subscribe)
	auth.GET(paths.CancelSubscription, billingH.CancelSubscription)
	auth.POST(paths.CancelSubscription, billingH.CancelSubscription)

	// Subscribed users
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription(deps.Sessions))
	subscribed.GET(paths.Members, pagesH.Members)

	api := r.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.POST("/login", middleware.SanitizeAndCleanInputMiddleware(), authH.APILogin)
	api.GET("/me", middleware.AuthMiddleware(cfg.JWTSecret), usersH.GetCurrentUser)
}
