package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// AuthHandler serves the session endpoints under /auth.
type AuthHandler struct {
	Sessions *service.SessionManager
	Cookies  httpx.CookieConfig
}

// HandleRegister handles POST /auth/register
//
//	@Summary		Register
//	@Description	Creates a customer account and signs it in. Both tokens are returned in the body and as HttpOnly cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Account details"
//	@Success		201		{object}	authsdk.RegisterResponse	"id and token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		409		{object}	authsdk.ErrorResponse		"email already registered"
//	@Failure		429		{object}	authsdk.ErrorResponse		"rate limited"
//	@Failure		503		{object}	authsdk.ErrorResponse		"store unavailable"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	email, err := validEmail(req.Email)
	err = firstErr(err,
		validPassword(req.Password, 8),
		validName("firstName", req.FirstName),
		validName("lastName", req.LastName),
	)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	sess, err := h.Sessions.Register(r.Context(), service.RegisterInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, sess)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		ID:            sess.Identity.ID,
		TokenResponse: toTokenResponse(sess.Tokens),
	})
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Login
//	@Description	Exchanges email and password for a token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"id, role and token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate limited"
//	@Failure		503		{object}	authsdk.ErrorResponse	"store unavailable"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	// Length rules belong to registration; a short password here is just wrong.
	email, err := validEmail(req.Email)
	if err = firstErr(err, requirePassword(req.Password)); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	sess, err := h.Sessions.Login(r.Context(), email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, sess)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		ID:            sess.Identity.ID,
		Role:          sess.Identity.Role.String(),
		TokenResponse: toTokenResponse(sess.Tokens),
	})
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Refresh
//	@Description	Redeems a refresh token, from the refreshToken cookie or the body, for a new pair. Each refresh token works once.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token when not sent as a cookie"
//	@Success		200		{object}	authsdk.TokenResponse	"new token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse	"no refresh token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token or identity_not_found"
//	@Failure		503		{object}	authsdk.ErrorResponse	"store unavailable"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := decodeOptionalBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	token := refreshTokenFrom(r, req.RefreshToken)
	if token == "" {
		httpx.WriteError(w, badRequest("refresh token is required"))
		return
	}

	sess, err := h.Sessions.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, sess)
	httpx.WriteJSON(w, http.StatusOK, toTokenResponse(sess.Tokens))
}

// HandleLogout handles POST /auth/logout
//
//	@Summary		Logout
//	@Description	Revokes the caller's refresh token and clears both cookies. Succeeds when there is nothing to revoke.
//	@Tags			Auth
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.LogoutRequest	false	"Refresh token when not sent as a cookie"
//	@Success		204		"logged out"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unauthenticated"
//	@Failure		503		{object}	authsdk.ErrorResponse	"store unavailable"
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := decodeOptionalBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	claims, _ := httpx.ClaimsFromContext(r.Context())
	if err := h.Sessions.Logout(r.Context(), claims, refreshTokenFrom(r, req.RefreshToken)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.ClearTokenCookie(w, httpx.AccessTokenCookie)
	h.Cookies.ClearTokenCookie(w, httpx.RefreshTokenCookie)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelf handles GET /auth/self
//
//	@Summary		Current user
//	@Description	Returns the identity the access token was issued to.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserResponse	"the caller"
//	@Failure		401	{object}	authsdk.ErrorResponse	"unauthenticated or identity_not_found"
//	@Router			/auth/self [get].
func (h *AuthHandler) HandleSelf(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Sessions.Self(r.Context(), httpx.SubjectFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(identity))
}

func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, sess service.Session) {
	h.Cookies.SetTokenCookie(w, httpx.AccessTokenCookie, sess.Tokens.AccessToken, jwtx.AccessTokenTTL)
	h.Cookies.SetTokenCookie(w, httpx.RefreshTokenCookie, sess.Tokens.RefreshToken, jwtx.RefreshTokenTTL)
}

// refreshTokenFrom prefers the cookie over the body.
func refreshTokenFrom(r *http.Request, body string) string {
	if c, err := r.Cookie(httpx.RefreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(body)
}
