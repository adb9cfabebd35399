package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	TenantKey contextKey = "tenant"
	ActorKey  contextKey = "actor"
)

// ActorHeader names the reviewer or system acting on a case. Identity is
// asserted by the caller; it is recorded in audit events, not verified.
const ActorHeader = "X-Actor-ID"

// RequireTenant validates the {tenant} URL parameter and stores it, with the
// actor header, in the request context.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := chi.URLParam(r, "tenant")
		if err := ValidateTenantID(tenant); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), TenantKey, tenant)
		if actor := SanitizeString(r.Header.Get(ActorHeader)); actor != "" {
			ctx = context.WithValue(ctx, ActorKey, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantFromContext extracts tenant from context
func GetTenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(TenantKey).(string); ok {
		return tenant
	}
	return ""
}

// GetActorFromContext returns the acting user, "system" when none was sent.
func GetActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok {
		return actor
	}
	return "system"
}
