package model

import "time"

const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleEditor || role == RoleAdmin
}

// CanCurate reports whether role may manage pairings.
func CanCurate(role string) bool {
	return role == RoleEditor || role == RoleAdmin
}

type Profile struct {
	ID                string    `json:"id"`
	Email             *string   `json:"email"`
	DisplayName       string    `json:"display_name"`
	Role              string    `json:"role"`
	NotificationOptIn bool      `json:"notification_opt_in"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
