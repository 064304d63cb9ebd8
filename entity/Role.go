package entity

// Roles carried in the JWT. A chef is the seller of the orders on their menus.
const (
	RoleCustomer = "customer"
	RoleChef     = "chef"
	RoleAdmin    = "admin"
)
