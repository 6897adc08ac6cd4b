// Package recall implements the token-based session and sharing core of the
// recall content-sharing backend.
//
// Session tokens:
//   - Access and refresh tokens are HS256 JWTs signed with independent
//     secrets. Access tokens are short-lived and stateless; refresh tokens
//     are long-lived and exactly one valid copy per user is persisted on the
//     credential store. Reissuing overwrites the stored copy, so a replayed
//     refresh token is detected and the session is implicitly revoked.
//   - The Auther orchestrates sign-in, rotation, and sign-out. Side effects
//     are confined to the single refresh_token column of the users table.
//
// Share tokens:
//   - ShareService mints username-only tokens under a third secret with its
//     own expiry. They grant unauthenticated read access to a user's public
//     collection, are never persisted, and cannot be revoked before expiry.
//
// The three signing secrets are a deliberate isolation boundary: leaking a
// share token never forges a session token, and vice versa. Config validation
// refuses to start when two scopes share a secret.
package recall
