package model

// Session roles carried by gate cookies.
const (
	RoleVisitor = "visitor"
	RoleAdmin   = "admin"
)

// Session holds the identity established by a gate cookie.
// This is injected into the request context by the gate middleware.
type Session struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the session passed the admin gate.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
