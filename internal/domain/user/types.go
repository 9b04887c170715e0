package user

// Role is the caller's role as carried in the access token and recorded
// on audit events.
type Role string

const (
	RoleConsumer      Role = "consumer"
	RoleEstablishment Role = "establishment"
	RoleAdmin         Role = "admin"
	// RoleSystem is used for actions originated by background workers
	// (offer sweeps, promotions), never by a token.
	RoleSystem Role = "system"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleConsumer, RoleEstablishment, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}
