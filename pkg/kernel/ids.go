package kernel

// Service is the logical tenant discriminator. Every account, lookup and
// issued token is scoped to exactly one service.
type Service string

const (
	ServiceTourTracker Service = "tourtracker"
	ServiceArcade      Service = "arcade"
)

func NewService(s string) Service { return Service(s) }
func (s Service) String() string  { return string(s) }
func (s Service) IsEmpty() bool   { return string(s) == "" }

// Known reports whether s is one of the tenants this deployment serves.
func (s Service) Known() bool {
	switch s {
	case ServiceTourTracker, ServiceArcade:
		return true
	}
	return false
}

// PublicID is the externally-exposed account identifier. It is random,
// immutable and never reveals the internal primary key.
type PublicID string

func NewPublicID(id string) PublicID { return PublicID(id) }
func (p PublicID) String() string { return string(p) }
func (p PublicID) IsEmpty() bool  { return string(p) == "" }

