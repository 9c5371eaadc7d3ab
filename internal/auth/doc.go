// Package auth provides authentication for the application.
//
// Two authentication sources are supported:
//   - Local database authentication with Argon2id password hashing
//   - OpenID Connect (OIDC) authentication with external identity providers
//
// LocalProvider handles username/password authentication against the
// local database. OIDCProvider implements the OAuth2/OIDC code flow for
// providers like Google, Okta and Keycloak, provisioning an account on
// first login.
//
// Authentication answers who the caller is; what the caller may do is
// decided by the permission resolver in the authz package.
package auth
