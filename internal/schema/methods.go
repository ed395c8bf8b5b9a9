package schema

import (
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
)

// IsMethodEnabled reporta si el método está habilitado. Schema nil o método
// desconocido = deshabilitado.
func IsMethodEnabled(s *repository.ValidationSchema, m repository.AuthMethod) bool {
	if s == nil {
		return false
	}
	am := s.AuthMethods
	switch m {
	case repository.MethodEmailPassword:
		return am.EmailPassword.Enabled
	case repository.MethodPhoneSMS:
		return am.PhoneSMS.Enabled
	case repository.MethodMagicLink:
		return am.MagicLink.Enabled
	case repository.MethodSocialGoogle:
		return am.SocialGoogle.Enabled
	case repository.MethodSocialFacebook:
		return am.SocialFacebook.Enabled
	case repository.MethodSocialGithub:
		return am.SocialGithub.Enabled
	case repository.MethodTwoFactorApp:
		return am.TwoFactorApp.Enabled
	case repository.MethodTwoFactorPhone:
		return am.TwoFactorPhone.Enabled
	case repository.MethodTwoFactorEmail:
		return am.TwoFactorEmail.Enabled
	}
	return false
}

// SocialConfig retorna la config del proveedor social ("google", "github", "facebook").
func SocialConfig(s *repository.ValidationSchema, provider string) (repository.SocialMethod, bool) {
	if s == nil {
		return repository.SocialMethod{}, false
	}
	switch provider {
	case "google":
		return s.AuthMethods.SocialGoogle, true
	case "facebook":
		return s.AuthMethods.SocialFacebook, true
	case "github":
		return s.AuthMethods.SocialGithub, true
	}
	return repository.SocialMethod{}, false
}

// PolicyFrom adapta la política del schema al validador de password.
func PolicyFrom(p repository.PasswordPolicy) password.Policy {
	return password.Policy{
		MinLength:      p.MinLength,
		RequireUpper:   p.RequireUppercase,
		RequireLower:   p.RequireLowercase,
		RequireDigit:   p.RequireNumbers,
		RequireSpecial: p.RequireSpecialChars,
	}
}

// CheckPasswordStrength retorna el conjunto exacto de requisitos incumplidos
// (min_length, uppercase, lowercase, digit, special). Vacío = válida.
func CheckPasswordStrength(pwd string, p repository.PasswordPolicy) []string {
	_, v := PolicyFrom(p).Validate(pwd)
	return v
}
