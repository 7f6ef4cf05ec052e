package sosapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"
)

type actorKey struct{}

// actorFromHeaders reads the gateway headers. Unknown roles are ignored.
func actorFromHeaders(h http.Header) (models.Actor, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(h.Get(HeaderUserID)), 10, 64)
	if err != nil || id == 0 {
		return models.Actor{}, domainerr.ErrUnauthenticated
	}
	var roles []models.Role
	for _, raw := range strings.Split(h.Get(HeaderUserRoles), ",") {
		if r, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(raw))); ok {
			roles = append(roles, r)
		}
	}
	return models.NewActor(id, roles...), nil
}

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromHeaders(r.Header)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(ctx context.Context) models.Actor {
	a, _ := ctx.Value(actorKey{}).(models.Actor)
	return a
}
