package http

import (
	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/authsdk"
)

func toTokenResponse(tp domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		TokenType:    tp.TokenType,
		ExpiresIn:    int(tp.ExpiresIn),
	}
}

func toUserResponse(i domain.Identity) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:        i.ID,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Email:     i.Email,
		Role:      i.Role.String(),
		TenantID:  i.TenantID,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func toTenantResponse(t domain.Tenant) authsdk.TenantResponse {
	return authsdk.TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Address:   t.Address,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
