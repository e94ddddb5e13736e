// Package auth authenticates API requests.
//
// Two modes are supported:
//   - "none": no login, every request acts as DefaultUserID
//   - "local": users stored in the database, signed in with a session
//     cookie or an API bearer token
//
// # Configuration
//
//	AUTH_MODE=none   # Default
//	AUTH_MODE=local  # Requires creating the first user via /api/auth/setup
//
// For local mode:
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//
// Handlers read the caller with GetUserID(c). Zero means anonymous.
package auth
