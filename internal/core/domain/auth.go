package domain

// AuthorizationType selects how a token is presented in the Authorization header.
type AuthorizationType struct {
	scheme string
}

var (
	// AuthNone sends no Authorization header.
	AuthNone = AuthorizationType{}
	// AuthBasic presents the token with the "Basic" scheme.
	AuthBasic = AuthorizationType{scheme: "Basic"}
	// AuthBearer presents the token with the "Bearer" scheme.
	AuthBearer = AuthorizationType{scheme: "Bearer"}
)

// AuthCustom presents the token with an arbitrary scheme.
func AuthCustom(scheme string) AuthorizationType {
	return AuthorizationType{scheme: scheme}
}

// Scheme returns the header scheme, or "" for AuthNone.
func (a AuthorizationType) Scheme() string {
	return a.scheme
}

// IsNone reports whether no header should be sent.
func (a AuthorizationType) IsNone() bool {
	return a.scheme == ""
}

// HeaderValue formats the Authorization header value for token.
func (a AuthorizationType) HeaderValue(token string) string {
	if a.IsNone() {
		return ""
	}
	return a.scheme + " " + token
}

// ParseAuthorizationType maps a config string to an AuthorizationType.
// Unknown non-empty values become custom schemes.
func ParseAuthorizationType(s string) AuthorizationType {
	switch s {
	case "", "none":
		return AuthNone
	case "basic":
		return AuthBasic
	case "bearer":
		return AuthBearer
	default:
		return AuthCustom(s)
	}
}
