package authsdk

import (
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a machine readable code (e.g., "invalid_token", "conflict")
	Error string `json:"error" example:"invalid_request"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty" example:"email is not valid"`
}

// ============================================================================
// Session Types
// ============================================================================

// RegisterRequest creates a customer account.
type RegisterRequest struct {
	FirstName string `json:"firstName" example:"Ada"`
	LastName  string `json:"lastName" example:"Lovelace"`
	Email     string `json:"email" example:"ada@example.com"`
	Password  string `json:"password" example:"correct-horse"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Email    string `json:"email" example:"ada@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

// RefreshRequest carries a refresh token for clients that do not use cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LogoutRequest optionally names the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenResponse is the token pair returned by register, login and refresh.
// The same tokens are also set as HttpOnly cookies.
type TokenResponse struct {
	// AccessToken is an RS256 JWT valid for one hour
	AccessToken string `json:"accessToken"`

	// RefreshToken is an HS256 JWT, single use, valid for one year
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType" example:"Bearer"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expiresIn" example:"3600"`
}

// RegisterResponse is returned from POST /auth/register.
type RegisterResponse struct {
	ID int64 `json:"id" example:"1"`
	TokenResponse
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	ID   int64  `json:"id" example:"1"`
	Role string `json:"role" example:"customer"`
	TokenResponse
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse describes an identity. The password hash is never returned.
type UserResponse struct {
	ID        int64     `json:"id" example:"1"`
	FirstName string    `json:"firstName" example:"Ada"`
	LastName  string    `json:"lastName" example:"Lovelace"`
	Email     string    `json:"email" example:"ada@example.com"`
	Role      string    `json:"role" example:"customer"`
	TenantID  *int64    `json:"tenantId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateUserRequest is the admin variant of register. Role is required.
type CreateUserRequest struct {
	FirstName string `json:"firstName" example:"Grace"`
	LastName  string `json:"lastName" example:"Hopper"`
	Email     string `json:"email" example:"grace@example.com"`
	Password  string `json:"password" example:"cobol1"`
	Role      string `json:"role" example:"manager"`
	TenantID  *int64 `json:"tenantId,omitempty"`
}

// UpdateUserRequest patches an identity. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Role      *string `json:"role,omitempty"`
	TenantID  *int64  `json:"tenantId,omitempty"`

	// ClearTenant detaches the user from its tenant and wins over TenantID
	ClearTenant bool `json:"clearTenant,omitempty"`
}

// ============================================================================
// Tenant Types
// ============================================================================

// TenantRequest creates a tenant.
type TenantRequest struct {
	Name    string `json:"name" example:"Acme"`
	Address string `json:"address" example:"1 Example St"`
}

// UpdateTenantRequest patches a tenant. Omitted fields are left unchanged.
type UpdateTenantRequest struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

// TenantResponse describes a tenant.
type TenantResponse struct {
	ID        int64     `json:"id" example:"1"`
	Name      string    `json:"name" example:"Acme"`
	Address   string    `json:"address" example:"1 Example St"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListTenantsResponse is returned from GET /tenants.
type ListTenantsResponse struct {
	Tenants []TenantResponse `json:"tenants"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the identity store connection status
	Database string `json:"database"`

	// RefreshStore is reported separately when refresh records live outside
	// the database
	RefreshStore string `json:"refreshStore,omitempty"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the JSON Web Key Set.
// This is returned from the GET /.well-known/jwks.json endpoint and contains
// public keys used to verify access token signatures.
type JWKSResponse jwtx.JWKS
