package models

type Role string

const (
	RolePatient Role = "patient"
	RoleDonor   Role = "donor"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RolePatient, RoleDonor, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is the caller of an operation as forwarded by the gateway.
type Actor struct {
	ID    uint64
	Roles map[Role]struct{}
}

func NewActor(id uint64, roles ...Role) Actor {
	a := Actor{ID: id, Roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		a.Roles[r] = struct{}{}
	}
	return a
}

func (a Actor) Has(r Role) bool {
	_, ok := a.Roles[r]
	return ok
}

func (a Actor) IsAdmin() bool {
	return a.Has(RoleAdmin)
}
