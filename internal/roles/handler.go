package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
	"github.com/monitop/monitop/internal/view"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	gate      authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, gate authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, gate: gate}
}

// MountRoutes registers role routes. Every route resolves its required
// permission from this static table, never from request input.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermRolesView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermRolesCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermRolesEdit))
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermRolesDelete))
		r.Post("/{id}/delete", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(authz.PermRolesAssign))
		r.Post("/{id}/permissions", h.syncPermissions)
	})
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageRequest(r)
	result, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": "No se pudieron cargar los roles."}}, http.StatusInternalServerError)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"roles": result, "pagination": pagination})
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{
		"Roles":      result,
		"Pagination": pagination,
		"Catalog":    authz.Catalog(),
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	name, ok := h.roleName(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if _, err := h.service.Create(r.Context(), actorID, name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Rol creado exitosamente.")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	name, ok := h.roleName(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if _, err := h.service.Update(r.Context(), actorID, id, name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Rol actualizado exitosamente.")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	actorID := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Rol eliminado exitosamente.")
}

func (h *Handler) syncPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}

	var names []string
	if httpx.WantsJSON(r) {
		var payload struct {
			Permissions []string `json:"permissions"`
		}
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return
		}
		names = payload.Permissions
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		names = r.Form["permissions"]
	}

	actorID := shared.CurrentUserID(r.Context())
	if err := h.service.SyncPermissions(r.Context(), actorID, id, names); err != nil {
		h.fail(w, r, err)
		return
	}
	h.succeed(w, r, "Permisos actualizados exitosamente.")
}

// Helpers

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
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

func (h *Handler) roleName(w http.ResponseWriter, r *http.Request) (string, bool) {
	if httpx.WantsJSON(r) {
		var payload struct {
			Name string `json:"name"`
		}
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.RespondError(w, httpx.ErrValidation)
			return "", false
		}
		return payload.Name, true
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return "", false
	}
	return r.PostFormValue("name"), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, err)
		return
	}
	message := "No se pudo completar la operación."
	switch {
	case errors.Is(err, httpx.ErrConflict), errors.Is(err, httpx.ErrValidation):
		message = err.Error()
	case errors.Is(err, httpx.ErrNotFound):
		message = "El rol no existe."
	}
	h.redirectWithFlash(w, r, "/roles", "error", message)
}

func (h *Handler) succeed(w http.ResponseWriter, r *http.Request, message string) {
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", message)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Roles",
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
