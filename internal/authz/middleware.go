package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/monitop/monitop/internal/platform/httpx"
	"github.com/monitop/monitop/internal/shared"
)

// DenialMessage is the generic message surfaced on every authorization
// denial. It deliberately never names the failing permission.
const DenialMessage = "No tienes permisos para realizar esta acción."

// Middleware is the server-side enforcement gate. It resolves the actor's
// snapshot fresh per request and short-circuits before any handler runs.
type Middleware struct {
	Source SnapshotSource
	Logger *slog.Logger
	// OnDeny, when set, observes every denial with the permission that was
	// required.
	OnDeny func(permission string)
}

// Require ensures the current user may perform the action gated by perm.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if !snap.Allows(perm) {
				m.deny(w, r, perm)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// RequireAny ensures the current user holds at least one of perms.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := m.resolve(w, r)
			if !ok {
				return
			}
			if !snap.AllowsAny(perms...) {
				m.deny(w, r, strings.Join(perms, "|"))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// RequireAuthenticated only checks for a logged-in user, without gating on
// a specific permission.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, ok := m.resolve(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
	})
}

// resolve loads a fresh snapshot for the session user. It writes the
// unauthenticated response itself and reports ok=false when the request
// must not proceed.
func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (Snapshot, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		m.unauthenticated(w, r)
		return Snapshot{}, false
	}
	snap, err := m.Source.Snapshot(r.Context(), sess.User())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Session points at a deleted user; treat as logged out.
			m.unauthenticated(w, r)
			return Snapshot{}, false
		}
		if m.Logger != nil {
			m.Logger.Error("authz resolve snapshot", slog.Int64("user_id", sess.User()), slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return Snapshot{}, false
	}
	return snap, true
}

func (m Middleware) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, permission string) {
	if m.Logger != nil {
		m.Logger.Warn("authz denied", slog.String("path", r.URL.Path), slog.String("permission", permission))
	}
	if m.OnDeny != nil {
		m.OnDeny(permission)
	}
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: DenialMessage})
	}
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
