// Package api is the HTTP client for the StrathConnect backend.
//
// Every call goes through one pipeline: build headers (JSON content type,
// bearer token unless the endpoint is an auth endpoint), send with cookies,
// normalize any failure into *Error. For exactly one class of recoverable
// failure, an expired access token, the pipeline refreshes the token and
// re-issues the original request once. Concurrent callers that hit an
// expired token share a single in-flight refresh.
package api
