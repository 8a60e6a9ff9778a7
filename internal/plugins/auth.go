package plugins

import (
	"context"
	"net/http"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// TokenFunc returns the token to present for a request.
type TokenFunc func(ctx context.Context, authType domain.AuthorizationType) string

// AccessToken sets the Authorization header on requests whose target
// implements domain.AccessTokenAuthorizable. Targets reporting AuthNone, and
// targets without the interface, are left untouched. An empty token leaves
// the request untouched.
func AccessToken(token TokenFunc) ports.Plugin {
	return ports.Plugin{
		Name: "access_token",
		PrepareRequest: func(ctx context.Context, req *http.Request, target domain.Target) *http.Request {
			authorizable, ok := target.(domain.AccessTokenAuthorizable)
			if !ok {
				return req
			}
			authType := authorizable.AuthorizationType()
			if authType.IsNone() {
				return req
			}
			tok := token(ctx, authType)
			if tok == "" {
				return req
			}
			req.Header.Set("Authorization", authType.HeaderValue(tok))
			return req
		},
	}
}

// StaticToken returns a TokenFunc that always yields token.
func StaticToken(token string) TokenFunc {
	return func(context.Context, domain.AuthorizationType) string {
		return token
	}
}

// CredentialsFunc returns basic auth credentials for a target. ok is false
// when the target needs none.
type CredentialsFunc func(target domain.Target) (username, password string, ok bool)

// Credentials applies HTTP basic authentication.
func Credentials(credentials CredentialsFunc) ports.Plugin {
	return ports.Plugin{
		Name: "credentials",
		PrepareRequest: func(_ context.Context, req *http.Request, target domain.Target) *http.Request {
			user, pass, ok := credentials(target)
			if !ok {
				return req
			}
			req.SetBasicAuth(user, pass)
			return req
		},
	}
}
