// Package models defines the client-side data types exchanged with the
// job-tracking backend: users, profiles, documents, and job applications.
package models

import "strings"

// User is the identity returned by the identity endpoint. Profile is only
// present when the backend embeds it.
type User struct {
	ID        string   `json:"_id,omitempty"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Verified  bool     `json:"verified,omitempty"`
	Profile   *Profile `json:"profile,omitempty"`
}

// DisplayName prefers the full name and falls back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// Credentials are the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup is the registration payload.
type Signup struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthResponse is the body of login and signup responses. Either field may
// be missing depending on the backend version.
type AuthResponse struct {
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}
