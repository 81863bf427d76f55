package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"accounts-app/internal/api/forms"
	"accounts-app/internal/api/pages"
	"accounts-app/internal/app/http/metrics"
	"accounts-app/internal/app/http/middleware"
	"accounts-app/internal/app/http/paths"
	"accounts-app/internal/domain/users"
	"accounts-app/internal/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errors.New("invalid credentials")

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@+\-]+$`)

type Handler struct {
	log           *slog.Logger
	repo          users.Repository
	sessions      *session.Store
	jwtSecret     string
	googleEnabled bool
}

func New(log *slog.Logger, repo users.Repository, sessions *session.Store, jwtSecret string, googleEnabled bool) *Handler {
	return &Handler{
		log:           log,
		repo:          repo,
		sessions:      sessions,
		jwtSecret:     jwtSecret,
		googleEnabled: googleEnabled,
	}
}

type loginForm struct {
	UsernameOrEmail string `form:"username_or_email" json:"username_or_email" binding:"required"`
	Password        string `form:"password" json:"password" binding:"required"`
}

type registerForm struct {
	Username  string `form:"username" binding:"required,min=3,max=150"`
	Email     string `form:"email" binding:"required,email"`
	Password1 string `form:"password1" binding:"required,min=8"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// Login serves GET and POST /accounts/login.
func (h *Handler) Login(c *gin.Context) {
	const op = "api.auth.Login"
	log := h.log.With(slog.String("op", op))

	next := c.Query("next")
	if next == "" {
		next = c.PostForm("next")
	}

	var form loginForm
	errs := forms.Errors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&form); err != nil {
			errs = forms.FromBinding(err)
		} else {
			user, err := h.authenticate(c.Request.Context(), form.UsernameOrEmail, form.Password)
			switch {
			case err == nil:
				if err := h.sessions.Login(c, user.ID); err != nil {
					log.Error("failed to save session", slog.Any("error", err))
					errs.Add(forms.NonField, "We were unable to log you in at this time")
					break
				}
				metrics.Logins.WithLabelValues("session", "success").Inc()
				log.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
				h.sessions.AddFlash(c, session.FlashSuccess, "You have successfully logged in")
				c.Redirect(http.StatusFound, redirectAfterLogin(next))
				return
			case errors.Is(err, errInvalidCredentials):
				metrics.Logins.WithLabelValues("session", "rejected").Inc()
				errs.Add(forms.NonField, "Your username or password was not recognised")
			default:
				log.Error("login lookup failed", slog.Any("error", err))
				errs.Add(forms.NonField, "We were unable to log you in at this time")
			}
		}
	}

	form.Password = ""
	pages.Render(c, h.sessions, http.StatusOK, "login.html", gin.H{
		"Title":         "Log in",
		"Form":          form,
		"Errors":        errs,
		"Next":          next,
		"GoogleEnabled": h.googleEnabled,
	})
}

func redirectAfterLogin(next string) string {
	if target, ok := paths.SafeNext(next); ok {
		return target
	}
	return paths.Profile
}

// Logout always succeeds from the user's point of view.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.log.Error("failed to clear session", slog.String("op", "api.auth.Logout"), slog.Any("error", err))
	}
	h.sessions.AddFlash(c, session.FlashSuccess, "You have successfully logged out")
	c.Redirect(http.StatusFound, paths.Index)
}

// Register serves GET and POST /accounts/register.
func (h *Handler) Register(c *gin.Context) {
	const op = "api.auth.Register"
	log := h.log.With(slog.String("op", op))

	var form registerForm
	errs := forms.Errors{}

	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBind(&form); err != nil {
			errs = forms.FromBinding(err)
		}
		h.validateRegistration(c.Request.Context(), &form, errs)

		if !errs.Any() {
			user, err := h.createLocalUser(c.Request.Context(), form)
			switch {
			case errors.Is(err, users.ErrDuplicate):
				errs.Add(forms.NonField, "A user with that username or email already exists.")
			case err != nil:
				log.Error("failed to create user", slog.Any("error", err))
				errs.Add(forms.NonField, "We were unable to register you at this time.")
			default:
				log.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
				if err := h.sessions.Login(c, user.ID); err != nil {
					log.Error("failed to save session", slog.Any("error", err))
					h.sessions.AddFlash(c, session.FlashError, "Unable to log you in at this time!")
					c.Redirect(http.StatusFound, paths.Login)
					return
				}
				h.sessions.AddFlash(c, session.FlashSuccess, "You have successfully registered")
				c.Redirect(http.StatusFound, paths.Profile)
				return
			}
		}

		h.sessions.AddFlash(c, session.FlashError, "We were unable to register you")
	}

	form.Password1, form.Password2 = "", ""
	pages.Render(c, h.sessions, http.StatusOK, "register.html", gin.H{
		"Title":  "Register",
		"Form":   form,
		"Errors": errs,
	})
}

func (h *Handler) validateRegistration(ctx context.Context, form *registerForm, errs forms.Errors) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if form.Username != "" && !usernamePattern.MatchString(form.Username) {
		errs.Add("Username", "Enter a valid username. It may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if form.Password1 != "" && !isPasswordStrong(form.Password1) {
		errs.Add("Password1", "Password must be at least 8 characters long and contain both letters and numbers")
	}

	if form.Username != "" {
		if _, err := h.repo.FindByUsername(ctx, form.Username); err == nil {
			errs.Add("Username", "A user with that username already exists.")
		}
	}
	if form.Email != "" {
		if _, err := h.repo.FindByEmail(ctx, form.Email); err == nil {
			errs.Add("Email", "A user with that email already exists.")
		}
	}
}

func (h *Handler) createLocalUser(ctx context.Context, form registerForm) (*users.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(form.Password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashed := string(hashedPassword)

	user := &users.User{
		Username:     form.Username,
		Email:        form.Email,
		Password:     &hashed,
		AuthProvider: users.ProviderLocal,
		IsActive:     true,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *Handler) authenticate(ctx context.Context, login, password string) (*users.User, error) {
	user, err := h.repo.FindByLogin(ctx, login)
	if errors.Is(err, users.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !user.HasPassword() {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// APILogin exchanges credentials for a bearer token.
func (h *Handler) APILogin(c *gin.Context) {
	var input loginForm
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid credentials"})
		return
	}

	user, err := h.authenticate(c.Request.Context(), input.UsernameOrEmail, input.Password)
	if errors.Is(err, errInvalidCredentials) {
		metrics.Logins.WithLabelValues("token", "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.Error("login lookup failed", slog.String("op", "api.auth.APILogin"), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not log in"})
		return
	}

	tokenString, err := middleware.IssueToken(h.jwtSecret, user.ID, user.Username, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	metrics.Logins.WithLabelValues("token", "success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}
