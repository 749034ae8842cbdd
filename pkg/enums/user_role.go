package enums

// UserRole is fixed at registration.
type UserRole string

const (
	UserRoleRequester UserRole = "requester"
	UserRolePasabuyer UserRole = "pasabuyer"
)

var userRoles = members[UserRole]{UserRoleRequester, UserRolePasabuyer}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return userRoles.has(r) }
