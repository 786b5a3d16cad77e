package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
)

// UsersHandler handles identity administration.
type UsersHandler struct {
	Identities *service.IdentityService
}

// HandleCreate handles POST /users
//
//	@Summary		Create user
//	@Description	Creates an identity with an explicit role, optionally inside a tenant.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreateUserRequest	true	"User"
//	@Success		201		{object}	authsdk.UserResponse		"created user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		403		{object}	authsdk.ErrorResponse		"forbidden"
//	@Failure		409		{object}	authsdk.ErrorResponse		"email already registered"
//	@Router			/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	email, err := validEmail(req.Email)
	role, roleErr := validRole(req.Role)
	err = firstErr(err,
		validName("firstName", req.FirstName),
		validName("lastName", req.LastName),
		validPassword(req.Password, 6),
		roleErr,
		validTenantID(req.TenantID),
	)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	identity, err := h.Identities.Create(r.Context(), service.CreateIdentityInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Password:  req.Password,
		Role:      role,
		TenantID:  req.TenantID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(identity))
}

// HandleGet handles GET /users/{id}
//
//	@Summary		Get user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int						true	"User id"
//	@Success		200	{object}	authsdk.UserResponse	"user"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	identity, err := h.Identities.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(identity))
}

// HandleUpdate handles PATCH /users/{id}
//
//	@Summary		Update user
//	@Description	Changes profile fields, role or tenant. A new role takes effect on the user's next refresh.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"User id"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse		"updated user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		404		{object}	authsdk.ErrorResponse		"not_found"
//	@Failure		409		{object}	authsdk.ErrorResponse		"email already registered"
//	@Router			/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	var req authsdk.UpdateUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	patch, err := userPatch(req)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	identity, err := h.Identities.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(identity))
}

func userPatch(req authsdk.UpdateUserRequest) (domain.IdentityPatch, error) {
	patch := domain.IdentityPatch{TenantID: req.TenantID, ClearTenant: req.ClearTenant}

	if req.FirstName != nil {
		if err := validName("firstName", *req.FirstName); err != nil {
			return patch, err
		}
		v := strings.TrimSpace(*req.FirstName)
		patch.FirstName = &v
	}
	if req.LastName != nil {
		if err := validName("lastName", *req.LastName); err != nil {
			return patch, err
		}
		v := strings.TrimSpace(*req.LastName)
		patch.LastName = &v
	}
	if req.Email != nil {
		email, err := validEmail(*req.Email)
		if err != nil {
			return patch, err
		}
		patch.Email = &email
	}
	if req.Role != nil {
		role, err := validRole(*req.Role)
		if err != nil {
			return patch, err
		}
		patch.Role = &role
	}
	return patch, validTenantID(req.TenantID)
}

// HandleDelete handles DELETE /users/{id}
//
//	@Summary		Delete user
//	@Description	Deletes a user and revokes every refresh token they hold.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User id"
//	@Success		204	"deleted"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	if err := h.Identities.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
