package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// retryAfterSeconds is advertised on 503s caused by a slow or absent store.
const retryAfterSeconds = "1"

// writeServiceError maps a service error to its HTTP response. Unknown errors
// are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *httpx.APIError
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		e = &httpx.APIError{Status: http.StatusUnauthorized, Code: authsdk.ErrorCodeInvalidCredentials,
			Description: "invalid email or password"}
	case errors.Is(err, service.ErrInvalidToken):
		e = &httpx.APIError{Status: http.StatusUnauthorized, Code: authsdk.ErrorCodeInvalidToken,
			Description: "token is invalid, expired or already used"}
	case errors.Is(err, service.ErrIdentityNotFound):
		e = &httpx.APIError{Status: http.StatusUnauthorized, Code: authsdk.ErrorCodeIdentityNotFound,
			Description: "identity no longer exists"}
	case errors.Is(err, service.ErrConflict):
		e = &httpx.APIError{Status: http.StatusConflict, Code: authsdk.ErrorCodeConflict,
			Description: "resource already exists"}
	case errors.Is(err, service.ErrNotFound):
		e = &httpx.APIError{Status: http.StatusNotFound, Code: authsdk.ErrorCodeNotFound,
			Description: "resource not found"}
	case errors.Is(err, service.ErrInvalidInput):
		e = &httpx.APIError{Status: http.StatusBadRequest, Code: authsdk.ErrorCodeInvalidRequest,
			Description: strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")}
	case errors.Is(err, service.ErrStoreUnavailable):
		slogx.FromContext(r.Context()).Warn("store unavailable", "err", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		e = &httpx.APIError{Status: http.StatusServiceUnavailable, Code: authsdk.ErrorCodeTemporarilyUnavailable,
			Description: "please retry shortly"}
	case errors.Is(err, service.ErrKeySourceUnavailable), errors.Is(err, jwtx.ErrKeySource):
		slogx.FromContext(r.Context()).Error("signing key unavailable", "err", err)
		e = serverError()
	default:
		slogx.FromContext(r.Context()).Error("unhandled error", "err", err)
		e = serverError()
	}
	httpx.WriteError(w, e)
}

func serverError() *httpx.APIError {
	return &httpx.APIError{Status: http.StatusInternalServerError, Code: authsdk.ErrorCodeServerError,
		Description: "internal server error"}
}

func badRequest(desc string) *httpx.APIError {
	return &httpx.APIError{Status: http.StatusBadRequest, Code: authsdk.ErrorCodeInvalidRequest, Description: desc}
}
