package authsdk

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// FetchJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) FetchJWKS(ctx context.Context) (jwtx.JWKS, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if err != nil {
		return jwtx.JWKS{}, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return jwtx.JWKS{}, err
	}

	return jwtx.JWKS(jwks), nil
}
