// Package auth implements bearer token issuance and verification plus the
// authentication flow that converts a GitHub authorization code into a
// signed token.
//
// # Tokens
//
// Tokens are self-contained HS256 JWTs carrying the user ID as subject
// along with display name and avatar URL. There is no session table and
// no revocation: any token that verifies was issued by this service and
// has not expired, and its subject is trusted without a further lookup.
// The default lifetime is 30 days.
//
// # Authentication flow
//
// Service.Register runs the login pipeline in strict order:
//
//  1. structural validation of the authorization code
//  2. code -> access token exchange (pkg/provider)
//  3. profile fetch and shape validation (pkg/provider)
//  4. user upsert by external ID (pkg/users)
//  5. token issuance
//
// No durable state is written unless steps 1-3 all succeed, and the upsert
// in step 4 is idempotent under concurrent duplicate logins.
package auth
