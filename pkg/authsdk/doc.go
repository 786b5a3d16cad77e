/*
Package authsdk is the Go client for the authcore identity service.

# SDKClient and Session

SDKClient covers the public endpoints. Register and Login return a Session
that holds the token pair and refreshes the access token shortly before it
expires:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, login, err := client.Login(ctx, "ada@example.com", "correct-horse")
	if authsdk.HasCode(err, authsdk.ErrorCodeInvalidCredentials) {
		// unknown email and wrong password look the same
	}

	me, err := session.Self(ctx)
	err = session.Logout(ctx)

Refresh tokens are single use. Every refresh spends the old token, so a
Session must not be shared with another process holding the same refresh
token. Sessions are safe for concurrent use within one process.

Admin operations (tenants and users) are methods on Session. The service
decides which roles may call them.

# Resource servers

Services that only need to check access tokens use Verifier, which caches the
service's JWKS and refetches it, rate limited, when it meets an unknown kid:

	v := authsdk.NewVerifier(client, "auth-service")
	mux.Handle("/orders", v.Middleware()(ordersHandler))

Inside the handler, httpx.ClaimsFromContext returns the verified claims.
Authorization is an exact role match; no role implies another.

# Errors

Non-2xx responses are returned as *APIError carrying the service's error code.
Use HasCode or errors.As to inspect them.
*/
package authsdk
