package domain

import "time"

// Tenant owns zero or more identities. Identities point at their tenant, the
// tenant holds no back-references.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantPatch carries the mutable fields of a tenant; nil means keep.
type TenantPatch struct {
	Name    *string
	Address *string
}
