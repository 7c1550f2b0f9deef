// Package authz resolves the acting user from the upstream session and
// gates the period closing capabilities on the user's ERPNext roles.
package authz

import (
	"context"
	"net/http"
	"slices"

	"github.com/batasku/periodgate/internal/erpnext"
)

// RoleSystemManager always passes every gate.
const RoleSystemManager = "System Manager"

// RoleAccountsManager is the default closing and reopening role.
const RoleAccountsManager = "Accounts Manager"

// SessionCookie is the upstream session cookie forwarded by clients.
const SessionCookie = "sid"

// Actor is the authenticated upstream user.
type Actor struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// SystemManager reports whether the actor holds the System Manager role.
func (a Actor) SystemManager() bool {
	return a.HasRole(RoleSystemManager)
}

type userSource interface {
	LoggedUser(ctx context.Context, sid string) (string, error)
	Get(ctx context.Context, doctype, name string, out any) error
}

// Resolver turns a session cookie into an Actor via upstream.
type Resolver struct {
	client userSource
}

// NewResolver constructs a Resolver over the given ERPNext client.
func NewResolver(client userSource) *Resolver {
	return &Resolver{client: client}
}

type userDoc struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Roles    []struct {
		Role string `json:"role"`
	} `json:"roles"`
}

// Resolve validates the session and loads the user's roles. An empty actor
// with ok=false means the session is absent, expired, or Guest.
func (r *Resolver) Resolve(ctx context.Context, sid string) (Actor, bool, error) {
	if sid == "" {
		return Actor{}, false, nil
	}
	user, err := r.client.LoggedUser(ctx, sid)
	if err != nil {
		return Actor{}, false, err
	}
	if user == "" {
		return Actor{}, false, nil
	}
	var doc userDoc
	if err := r.client.Get(ctx, erpnext.DoctypeUser, user, &doc); err != nil {
		return Actor{}, false, err
	}
	actor := Actor{Name: doc.Name, Email: doc.Email, FullName: doc.FullName}
	if actor.Email == "" {
		actor.Email = doc.Name
	}
	for _, role := range doc.Roles {
		actor.Roles = append(actor.Roles, role.Role)
	}
	return actor, true, nil
}

// SessionID extracts the upstream session cookie from a request.
func SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
