package auth

// Class is how the gate treats a path.
type Class int

const (
	// ClassOpen covers assets and probes: no session logic at all.
	ClassOpen Class = iota
	// ClassPublic covers auth pages: rendered without the app header.
	ClassPublic
	// ClassProtected requires a session.
	ClassProtected
)

func (c Class) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassProtected:
		return "protected"
	default:
		return "open"
	}
}

// Access is the read-model pages consume.  Nothing downstream of the gate
// looks at raw cookies.
type Access struct {
	Class         Class
	Authenticated bool
	Hint          Hint
}

// ShowHeader is true only for authenticated requests to protected pages.
func (a Access) ShowHeader() bool {
	return a.Class == ClassProtected && a.Authenticated
}
