package authsdk

import (
	"context"
	"net/http"
	"strconv"
)

// Admin operations. Which roles may call each one is decided by the
// service's authorization policy; by default all of them require admin
// except ListTenants, which managers may also call.

// ============================================================================
// Tenants
// ============================================================================

// CreateTenant creates a tenant.
func (s *Session) CreateTenant(ctx context.Context, req TenantRequest) (*TenantResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/tenants", req)
	if err != nil {
		return nil, err
	}

	var out TenantResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTenants returns every tenant ordered by id.
func (s *Session) ListTenants(ctx context.Context) ([]TenantResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/tenants", nil)
	if err != nil {
		return nil, err
	}

	var out ListTenantsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Tenants, nil
}

// GetTenant fetches one tenant.
func (s *Session) GetTenant(ctx context.Context, id int64) (*TenantResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/tenants/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}

	var out TenantResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTenant patches a tenant.
func (s *Session) UpdateTenant(ctx context.Context, id int64, req UpdateTenantRequest) (*TenantResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/tenants/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, err
	}

	var out TenantResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTenant removes a tenant and detaches its users.
func (s *Session) DeleteTenant(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/tenants/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ============================================================================
// Users
// ============================================================================

// CreateUser creates an identity with an explicit role.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/users", req)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches one identity.
func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser patches an identity's profile, role or tenant.
func (s *Session) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/users/"+strconv.FormatInt(id, 10), req)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes an identity and every refresh token it holds.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
