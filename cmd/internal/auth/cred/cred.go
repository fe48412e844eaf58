// Package cred persists the client's credential pair: the raw access token
// and the JSON-serialized identity of the signed-in user.
//
// The two values are a unit. A token without an identity (or the reverse)
// is an inconsistent session, so Clear always removes both and implementations
// must never end up with only one of them after a crash-free operation.
package cred

import "errors"

// Storage keys. These are the client's "local storage" schema and must not
// change without a migration for existing credential files.
const (
	keyAccessToken = "strathconnect.access_token"
	keyIdentity    = "strathconnect.user"
)

// ErrNotFound is returned when a credential value is not present.
var ErrNotFound = errors.New("credential not found")

// Store abstracts credential persistence.
type Store interface {
	// Token returns the stored access token, or ErrNotFound.
	Token() (string, error)

	// SetToken stores the access token.
	SetToken(token string) error

	// Identity returns the stored identity JSON, or ErrNotFound.
	Identity() (string, error)

	// SetIdentity stores the identity JSON.
	SetIdentity(identityJSON string) error

	// Clear removes both the token and the identity.
	Clear() error
}
