package core

// Roles
const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// Session identifies the authenticated actor of a service call. It is built
// by the API layer from verified credentials and passed explicitly into every
// service operation; services hold no ambient "current user" state.
type Session struct {
	AccountID string
	Role      string
}

func (s Session) IsZero() bool {
	return s.AccountID == "" && s.Role == ""
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

func (s Session) IsCandidate() bool {
	return s.Role == RoleCandidate
}

// RequireRole checks that the session is authenticated with the given role.
// It returns ErrUnauthorized for an empty session and ErrForbidden for a
// role mismatch.
func (s Session) RequireRole(role string) error {
	if s.IsZero() {
		return ErrUnauthorized
	}
	if s.Role != role {
		return ErrForbidden
	}
	return nil
}
