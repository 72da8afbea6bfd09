package auth

// Authorize is the state free access control decision: the caller's
// role must exactly match one of the required roles, except ADMIN which
// always passes. An empty required set means the route only needs a
// valid identity. Unknown roles are denied every gated route.
func Authorize(role UserRole, required ...UserRole) error {
	if len(required) == 0 {
		return nil
	}

	if role == RoleAdmin {
		return nil
	}

	if !ValidRole(role) {
		return ErrInsufficientPrivileges
	}

	for _, want := range required {
		if role == want {
			return nil
		}
	}

	return ErrInsufficientPrivileges
}

// AuthorizeClaims applies the gate to validated token claims
func AuthorizeClaims(claims AuthClaims, required ...UserRole) error {
	if claims == nil {
		return ErrInsufficientPrivileges
	}
	return Authorize(claims.Role(), required...)
}
