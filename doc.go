// Package auth implements the authentication and authorization core for
// the user backend: credential hashing, access/refresh JWT lifecycle,
// time-limited email verification tokens, a token revocation denylist,
// and the role based access control gate used to protect endpoints.
//
// Components are wired through small interfaces (Identity, TokenService,
// RevocationStore, Config) so stores and transports can be swapped in
// tests. The HTTP surface lives in http_controller.go and middleware.go,
// persistence in the repo_* files, and the pure decision logic in
// hasher.go, token_service.go, verifier.go and gate.go.
package auth
