package auth

// RegisterRequest body de POST /v1/auth/register.
type RegisterRequest struct {
	Email       string         `json:"email"`
	Password    string         `json:"password"`
	Phone       string         `json:"phone,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Profile     map[string]any `json:"profile,omitempty"`
}

// LoginRequest body de POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest sirve para password/forgot y verify-email/resend.
type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ProfileUpdateRequest body de PUT /v1/auth/me. Un valor null en profile
// borra el campo.
type ProfileUpdateRequest struct {
	DisplayName string         `json:"display_name,omitempty"`
	Profile     map[string]any `json:"profile,omitempty"`
}

// SMSRequest sirve para sms/request y phone/change.
type SMSRequest struct {
	Phone string `json:"phone"`
}

type SMSVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// MagicLinkRequest: exactamente uno de email o phone.
type MagicLinkRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// TokenRequest para magic-link/verify, verify-email y token/validate.
type TokenRequest struct {
	Token string `json:"token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest: el access token puede venir en el header Authorization.
type LogoutRequest struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
