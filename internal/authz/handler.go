package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/monitop/monitop/internal/platform/httpx"
)

// Handler exposes the snapshot and catalog endpoints the client gate
// consumes. The client gate is advisory: it mirrors the evaluator to hide
// affordances and pre-empt doomed requests, but the middleware above stays
// the security boundary.
type Handler struct {
	logger *slog.Logger
	gate   Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, gate Middleware) *Handler {
	return &Handler{logger: logger, gate: gate}
}

// MountRoutes registers the JSON endpoints under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAuthenticated)
		r.Get("/me", h.me)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(PermRolesView, PermRolesAssign))
		r.Get("/permissions", h.listPermissions)
	})
}

type meResponse struct {
	User Snapshot `json:"user"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	snap := SnapshotFromContext(r.Context())
	if snap.Roles == nil {
		snap.Roles = []string{}
	}
	if snap.Permissions == nil {
		snap.Permissions = []string{}
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: snap})
}

type permissionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Guard       string `json:"guard"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	defs := Catalog()
	payload := make([]permissionPayload, 0, len(defs))
	for _, def := range defs {
		payload = append(payload, permissionPayload{
			Name:        def.Name,
			Description: def.Description,
			Category:    string(def.Category),
			Guard:       Guard,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": payload})
}
