// Package session owns the client-side authentication lifecycle.
//
// The Store is the single source of truth consumers observe: it holds the
// published session state (Loading, Authenticated, Unauthenticated),
// mirrors the identity to the credential store, and exposes the small
// operation set (Init, Login, Register, Logout, RefreshUser) the rest of
// the application drives it with.
//
// Invariant: an identity is persisted if and only if an access token is;
// the two are created and cleared together.
package session
