// Package common contains constants shared by the client layers.
package common

// Local storage keys. The token key is the single source of truth for
// "possibly authenticated"; the user key only caches a display hint.
const (
	StorageKeyToken = "auth_token"
	StorageKeyUser  = "user"
)

// AuthorizationHeaderName and BearerPrefix form the outbound credential header.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)
