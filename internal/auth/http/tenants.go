package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
	"github.com/aussiebroadwan/authcore/pkg/httpx"
)

// TenantsHandler handles all tenant management endpoints.
type TenantsHandler struct {
	Tenants *service.TenantService
}

func validTenantName(name string) error    { return validLength("name", name, 1, 100) }
func validTenantAddress(addr string) error { return validLength("address", addr, 0, 255) }

// HandleCreate handles POST /tenants
//
//	@Summary		Create tenant
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.TenantRequest	true	"Tenant"
//	@Success		201		{object}	authsdk.TenantResponse	"created tenant"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unauthenticated"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Router			/tenants [post].
func (h *TenantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.TenantRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}
	if err := firstErr(validTenantName(req.Name), validTenantAddress(req.Address)); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	t, err := h.Tenants.Create(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Address))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toTenantResponse(t))
}

// HandleList handles GET /tenants
//
//	@Summary		List tenants
//	@Tags			Tenants
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ListTenantsResponse	"tenants ordered by id"
//	@Failure		401	{object}	authsdk.ErrorResponse		"unauthenticated"
//	@Failure		403	{object}	authsdk.ErrorResponse		"forbidden"
//	@Router			/tenants [get].
func (h *TenantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Tenants.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := authsdk.ListTenantsResponse{Tenants: make([]authsdk.TenantResponse, 0, len(tenants))}
	for _, t := range tenants {
		out.Tenants = append(out.Tenants, toTenantResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /tenants/{id}
//
//	@Summary		Get tenant
//	@Tags			Tenants
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int						true	"Tenant id"
//	@Success		200	{object}	authsdk.TenantResponse	"tenant"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/tenants/{id} [get].
func (h *TenantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	t, err := h.Tenants.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTenantResponse(t))
}

// HandleUpdate handles PATCH /tenants/{id}
//
//	@Summary		Update tenant
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"Tenant id"
//	@Param			request	body		authsdk.UpdateTenantRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.TenantResponse		"updated tenant"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		404		{object}	authsdk.ErrorResponse		"not_found"
//	@Router			/tenants/{id} [patch].
func (h *TenantsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	var req authsdk.UpdateTenantRequest
	if err := decodeBody(w, r, &req); err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	var patch domain.TenantPatch
	if req.Name != nil {
		if err := validTenantName(*req.Name); err != nil {
			httpx.WriteError(w, badRequest(err.Error()))
			return
		}
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.Address != nil {
		if err := validTenantAddress(*req.Address); err != nil {
			httpx.WriteError(w, badRequest(err.Error()))
			return
		}
		addr := strings.TrimSpace(*req.Address)
		patch.Address = &addr
	}

	t, err := h.Tenants.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTenantResponse(t))
}

// HandleDelete handles DELETE /tenants/{id}
//
//	@Summary		Delete tenant
//	@Description	Deletes a tenant. Its users are kept and detached.
//	@Tags			Tenants
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Tenant id"
//	@Success		204	"deleted"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/tenants/{id} [delete].
func (h *TenantsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.WriteError(w, badRequest(err.Error()))
		return
	}

	if err := h.Tenants.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
