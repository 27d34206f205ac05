package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
	"github.com/monitop/monitop/internal/view"
)

// RoleDirectory lists the role names available for assignment.
type RoleDirectory interface {
	ListNames(ctx context.Context) ([]string, error)
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleDirectory
	templates *view.Engine
	csrf      *shared.CSRFManager
	gate      authz.Middleware
	validate  *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles RoleDirectory, templates *view.Engine, csrf *shared.CSRFManager, gate authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		templates: templates,
		csrf:      csrf,
		gate:      gate,
		validate:  validator.New(),
	}
}

// MountRoutes registers user routes. Every route resolves its required
// permission from this static table, never from request input.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermUsersView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermUsersCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermUsersEdit))
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermUsersDelete))
		r.Post("/{id}/delete", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermUsersAssign))
		r.Post("/{id}/roles", h.syncRoles)
	})
}

type userForm struct {
	Name     string `json:"name" validate:"required,max=255"`
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageRequest(r)

	var (
		result     []User
		pagination shared.Pagination
		roleNames  []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		result, pagination, err = h.service.List(ctx, page, perPage)
		return err
	})
	g.Go(func() error {
		var err error
		roleNames, err = h.roles.ListNames(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": map[string]string{"general": "No se pudieron cargar los usuarios."}}, http.StatusInternalServerError)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"users": result, "pagination": pagination, "roles": roleNames})
		return
	}
	h.render(w, r, "pages/users/list.html", map[string]any{
		"Users":      result,
		"Pagination": pagination,
		"RoleNames":  roleNames,
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.userForm(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if _, err := h.service.Create(r.Context(), actorID, CreateRequest(form)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Usuario creado exitosamente.")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	form, ok := h.userForm(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if _, err := h.service.Update(r.Context(), actorID, id, UpdateRequest(form)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Usuario actualizado exitosamente.")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		if errors.Is(err, httpx.ErrForbidden) {
			h.failWithMessage(w, r, err, "No puedes eliminar tu propia cuenta.")
			return
		}
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Usuario eliminado exitosamente.")
}

func (h *Handler) syncRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var names []string
	if httpx.WantsJSON(r) {
		var payload struct {
			Roles []string `json:"roles"`
		}
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		names = payload.Roles
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		names = r.Form["roles"]
	}

	actorID := shared.CurrentUserID(r.Context())
	if err := h.service.SyncRoles(r.Context(), actorID, id, names); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Roles actualizados exitosamente.")
}

// Helpers

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, httpx.ErrNotFound)
		} else {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return 0, false
	}
	return id, true
}

func (h *Handler) userForm(w http.ResponseWriter, r *http.Request) (userForm, bool) {
	var form userForm
	if httpx.WantsJSON(r) {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return userForm{}, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return userForm{}, false
		}
		form = userForm{
			Name:     r.PostFormValue("name"),
			Username: r.PostFormValue("username"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
	}
	if err := h.validate.Struct(form); err != nil {
		h.fail(w, r, formFieldErrors(err))
		return userForm{}, false
	}
	return form, true
}

func formFieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return httpx.ErrValidation
	}
	fields := httpx.FieldErrors{}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			fields["name"] = "El nombre es obligatorio."
		case "Username":
			fields["username"] = "El nombre de usuario es obligatorio."
		case "Email":
			fields["email"] = "El email no es válido."
		case "Password":
			fields["password"] = "La contraseña debe tener al menos 8 caracteres."
		}
	}
	return fields
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	message := "No se pudo completar la operación."
	switch {
	case errors.Is(err, httpx.ErrConflict), errors.Is(err, httpx.ErrValidation):
		message = err.Error()
	case errors.Is(err, httpx.ErrNotFound):
		message = "El usuario no existe."
	}
	h.failWithMessage(w, r, err, message)
}

func (h *Handler) failWithMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, err)
		return
	}
	h.redirectWithFlash(w, r, "/users", "error", message)
}

func (h *Handler) succeed(w http.ResponseWriter, r *http.Request, message string) {
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", message)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Usuarios",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Actor:       authz.SnapshotFromContext(r.Context()),
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
