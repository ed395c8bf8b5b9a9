package auth

import (
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
)

// UserResponse es la vista pública del usuario. Nunca incluye hashes ni tokens.
type UserResponse struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	Email         string         `json:"email,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	DisplayName   string         `json:"display_name"`
	Roles         []string       `json:"roles"`
	Status        string         `json:"status"`
	EmailVerified bool           `json:"email_verified"`
	PhoneVerified bool           `json:"phone_verified"`
	Providers     []string       `json:"providers,omitempty"`
	Profile       map[string]any `json:"profile,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewUserResponse(u *repository.User) *UserResponse {
	if u == nil {
		return nil
	}
	out := &UserResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Phone:         u.Phone,
		DisplayName:   u.DisplayName,
		Roles:         u.Roles,
		Status:        string(u.Status),
		EmailVerified: u.Methods.EmailPassword.Verified,
		PhoneVerified: u.Methods.PhoneSMS.Verified,
		Profile:       u.Profile,
		CreatedAt:     u.CreatedAt,
	}
	for p := range u.Methods.Social {
		out.Providers = append(out.Providers, p)
	}
	return out
}

// TokenResponse par de tokens (+ usuario en los flujos de login).
type TokenResponse struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	Type             string        `json:"type"`
	ExpiresIn        int64         `json:"expires_in"`
	RefreshExpiresIn int64         `json:"refresh_expires_in"`
	User             *UserResponse `json:"user,omitempty"`
}

func NewTokenResponse(p *jwt.Pair, u *repository.User, now time.Time) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		Type:             p.Type,
		ExpiresIn:        int64(p.AccessExpiresAt.Sub(now).Seconds()),
		RefreshExpiresIn: int64(p.RefreshExpiresAt.Sub(now).Seconds()),
		User:             NewUserResponse(u),
	}
}

type RegisterResponse struct {
	TokenResponse
	VerificationRequired bool   `json:"verification_required"`
	DebugToken           string `json:"debug_token,omitempty"`
}

// DispatchResponse respuesta de los pedidos de código/link/reset.
type DispatchResponse struct {
	Sent       bool       `json:"sent"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	DebugToken string     `json:"debug_token,omitempty"`
}

type SocialStartResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type ProviderResponse struct {
	Name     string   `json:"name"`
	ClientID string   `json:"client_id,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	AuthPath string   `json:"auth_path"`
}

type ProvidersResponse struct {
	Providers []ProviderResponse `json:"providers"`
}

type ValidateResponse struct {
	Valid     bool          `json:"valid"`
	UserID    string        `json:"user_id"`
	TenantID  string        `json:"tenant_id"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *UserResponse `json:"user"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
