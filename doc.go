// Package auth provides the authentication core for a small web service:
// credential storage, password verification, and bearer-token issuance and
// validation over HS256 JWTs.
//
// Token service:
//   - TokenService issues tokens carrying the subject id (nameidentifier) and
//     subject name (name) claims with a fixed lifetime, and validates inbound
//     tokens. Issuer and audience checks stay disabled unless the Config
//     supplies values for them.
//   - All validation failures (malformed, expired, bad signature) collapse to
//     an unauthorized outcome so callers cannot probe for the cause.
//
// Credential store:
//   - Users is a Bun-backed repository holding identity records (username,
//     email, password hash). UserProvider implements IdentityProvider on top
//     of it and reports identity-not-found and wrong-password through the
//     same error, which keeps login responses uniform.
//
// HTTP surface:
//   - AuthController registers the JSON routes (POST /register, POST /login)
//     on a go-router Router, and RouteAuthenticator.ProtectedRoute wraps
//     handlers with the middleware/jwtware bearer-token guard.
package auth
