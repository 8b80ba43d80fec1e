package domain

import "time"

// Role define el rol de acceso de un usuario.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

type User struct {
	ID                   string     `json:"id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name,omitempty"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	Role                 Role       `json:"role"`
	ProfileImage         string     `json:"profile_image,omitempty"`
	ProfileImagePublicID string     `json:"-"`
	Bio                  string     `json:"bio,omitempty"`
	Phone                string     `json:"phone,omitempty"`
	Location             string     `json:"location,omitempty"`
	OtpHash              string     `json:"-"`
	OtpExpiresAt         *time.Time `json:"-"`
	Verified             bool       `json:"verified"`
	IsSubscribed         bool       `json:"is_subscribed"`
	SubscriptionID       *string    `json:"subscription_id,omitempty"`
	SubscriptionExpiry   *time.Time `json:"subscription_expiry,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
