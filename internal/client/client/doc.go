// Package client talks to the VaultDrop gRPC API.
//
// GRPCClient keeps the session's access and refresh tokens, sends the access
// token in the "access_token" metadata key and, when a call fails with an
// expired token, refreshes once and retries. Refreshed tokens are reported
// through the OnTokens hook so the caller can persist them.
//
// gRPC status codes are translated back into the sentinel errors of package
// common (and ErrUnavailable), so callers match with errors.Is regardless of
// transport.
package client
