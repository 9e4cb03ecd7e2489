package enums

// UserRole separates shoppers from catalog administrators.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}
