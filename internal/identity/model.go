package identity

import "time"

const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleAdmin      = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}
