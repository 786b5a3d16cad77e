package http

import (
	"net/http"

	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery. It
// loads the signing key on first use so the set is never published empty
// while the key source is reachable.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Failure		500	{object}	authsdk.ErrorResponse	"signing key unavailable"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := keys.Load(); err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.KeySet.PublicJWKS()))
	}
}
