// Package jwt mints and verifies the stateless access/refresh token pairs
// handed out after registration, login and refresh.
//
// Both token types carry sub (account id), phone, role, typ, jti, iat, nbf
// and exp. A refresh token is rejected where an access token is expected
// and vice versa.
package jwt
