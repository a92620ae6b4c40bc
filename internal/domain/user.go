package domain

import "time"

// User is a bot contact. Created on first interaction, never deleted.
// Name and Phone are filled in (already normalized) during a registration
// dialogue or a profile edit.
type User struct {
	ID         string    `db:"user_id"`
	Name       string    `db:"name"`
	Phone      string    `db:"phone"`
	Username   string    `db:"username"`
	BotVersion string    `db:"bot_version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`

	// RegisteredBy is set for proxy registrants: the id of the real user
	// who registered this person.
	RegisteredBy string `db:"registered_by"`
}

// HasProfile reports whether both profile fields needed by registration
// flows are already collected.
func (u *User) HasProfile() bool {
	return u != nil && u.Name != "" && u.Phone != ""
}

// Subject identifies who a registration is for: the acting user, or a
// second person registered on their behalf.
type Subject struct {
	UserID string

	// Proxy fields; zero for self-registrations.
	Proxy        bool
	RegisteredBy string
	ProxyName    string
	ProxyPhone   string
}

// Self returns a subject for the acting user.
func Self(userID string) Subject {
	return Subject{UserID: userID}
}

// ProxyRegistrant returns a subject for a person registered by another
// user. The caller supplies a fresh synthetic id for the proxy.
func ProxyRegistrant(id, registeredBy, name, phone string) Subject {
	return Subject{
		UserID:       id,
		Proxy:        true,
		RegisteredBy: registeredBy,
		ProxyName:    name,
		ProxyPhone:   phone,
	}
}
