// Package auth is the authentication and session core for a course platform
// backend: paired access/refresh JWT credentials kept consistent with a
// Redis-backed session cache.
//
// Sessions:
//   - The session cache holds one JSON snapshot per user id, and its presence
//     is the only proof a user is logged in. Logout deletes the record, which
//     immediately kills every outstanding token regardless of expiry.
//
// Tokens:
//   - Access and refresh tokens carry just the user id and are signed with
//     distinct secrets and TTLs. Refresh requires a live session and mints a
//     brand new pair. Cookie policy (HTTPOnly, SameSite Lax, Secure in
//     production) comes from the token service.
//
// Registration:
//   - Nothing is persisted at register time: the pending account rides in a
//     short lived activation token while a 4 digit code goes out by mail.
//     Activation verifies both and creates the user.
//
// The middleware/guard subpackage authenticates requests (token, session,
// password-change staleness) and authorizes them by role.
package auth
