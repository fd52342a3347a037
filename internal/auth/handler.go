package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/facturapro/facturapro/internal/platform/httpx"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(shared.RequireUser)
		r.Get("/profile", h.showProfile)
		r.Post("/profile", h.handleProfile)
	})
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}

type profileForm struct {
	CompanyName string `validate:"required,max=200"`
	RTN         string `validate:"max=32"`
	Phone       string `validate:"max=32"`
}

type registerForm struct {
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,min=8,max=72"`
	CompanyName string `validate:"required,max=200"`
	RTN         string `validate:"max=32"`
	Phone       string `validate:"max=32"`
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

type profilePageData struct {
	Email     string
	Form      profileForm
	Errors    map[string]string
	CreatedAt time.Time
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	h.render(w, r, "pages/login.html", "Iniciar sesión", loginPageData{Next: r.URL.Query().Get("next")}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := r.PostFormValue("next")
	errs := h.validate(form)

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err != nil {
			errs["general"] = "Correo o contraseña inválidos"
		} else {
			h.startSession(r, sess, user)
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Bienvenido de nuevo"})
			}
			http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	h.render(w, r, "pages/login.html", "Iniciar sesión", loginPageData{Form: form, Errors: errs, Next: next}, http.StatusBadRequest)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/register.html", "Crear cuenta", registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := registerForm{
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Password:    r.PostFormValue("password"),
		CompanyName: strings.TrimSpace(r.PostFormValue("company_name")),
		RTN:         strings.TrimSpace(r.PostFormValue("rtn")),
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
	}
	errs := h.validate(form)
	status := http.StatusBadRequest

	if len(errs) == 0 {
		user, err := h.service.Register(r.Context(), Registration{
			Email:    form.Email,
			Password: form.Password,
			Profile:  Profile{CompanyName: form.CompanyName, RTN: form.RTN, Phone: form.Phone},
		})
		switch {
		case err == nil:
			h.startSession(r, sess, user)
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Cuenta creada. Ya puedes guardar tus facturas."})
			}
			http.Redirect(w, r, "/editor", http.StatusSeeOther)
			return
		case errors.Is(err, httpx.ErrDuplicate):
			errs["Email"] = "Ya existe una cuenta con ese correo"
			status = http.StatusConflict
		default:
			h.logger.Error("register user", slog.Any("error", err))
			errs["general"] = "No se pudo crear la cuenta, inténtalo de nuevo"
			status = http.StatusInternalServerError
		}
	}

	form.Password = ""
	h.render(w, r, "pages/register.html", "Crear cuenta", registerPageData{Form: form, Errors: errs}, status)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), shared.IdentityFromContext(r.Context()).UserID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/profile.html", "Perfil", profilePageData{
		Email:     user.Email,
		Form:      profileForm{CompanyName: user.CompanyName, RTN: user.RTN, Phone: user.Phone},
		CreatedAt: user.CreatedAt,
	}, http.StatusOK)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	userID := shared.IdentityFromContext(r.Context()).UserID
	user, err := h.service.User(r.Context(), userID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	form := profileForm{
		CompanyName: strings.TrimSpace(r.PostFormValue("company_name")),
		RTN:         strings.TrimSpace(r.PostFormValue("rtn")),
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		err := h.service.UpdateProfile(r.Context(), userID, Profile{CompanyName: form.CompanyName, RTN: form.RTN, Phone: form.Phone})
		if err == nil {
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Perfil actualizado"})
			}
			http.Redirect(w, r, "/auth/profile", http.StatusSeeOther)
			return
		}
		h.logger.Error("update profile", slog.Any("error", err))
		errs["general"] = "No se pudo guardar el perfil"
	}
	h.render(w, r, "pages/profile.html", "Perfil", profilePageData{
		Email:     user.Email,
		Form:      form,
		Errors:    errs,
		CreatedAt: user.CreatedAt,
	}, http.StatusBadRequest)
}

// startSession binds user to a renewed session id and records it for auditing.
func (h *Handler) startSession(r *http.Request, sess *shared.Session, user *User) {
	if sess == nil {
		h.logger.Error("session missing during login")
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(user.ID.String())
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
}

var fieldMessages = map[string]string{
	"required": "Este campo es obligatorio",
	"email":    "Ingresa un correo válido",
	"min":      "Debe tener al menos %s caracteres",
	"max":      "Debe tener como máximo %s caracteres",
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	err := h.validator.Struct(form)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs
	}
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "Valor inválido"
		}
		errs[fe.Field()] = strings.Replace(msg, "%s", fe.Param(), 1)
	}
	return errs
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    shared.IdentityFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/invoices"
	}
	return next
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}
