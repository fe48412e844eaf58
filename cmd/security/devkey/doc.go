// Package devkey derives a device-bound encryption key and seals small
// blobs with it (AES-256-GCM, HKDF-SHA256 key derivation).
//
// It exists so the credential file written by the client can be bound to
// the machine it was created on: copying the file to another host makes it
// undecryptable. The fingerprint is best-effort hardware identity; callers
// that run headless can override it via STRATHCONNECT_DEVICE_ID.
package devkey
