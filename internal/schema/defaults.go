// Package schema evalúa el Validation Schema de un tenant: métodos de login
// habilitados, política de password, campos custom con condiciones de
// visibilidad/dependencia y detección de ciclos entre campos.
package schema

import (
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

// Default es el schema implícito de un tenant que nunca guardó uno.
func Default(tenantID string) *repository.ValidationSchema {
	return &repository.ValidationSchema{
		TenantID: tenantID,
		AuthMethods: repository.AuthMethods{
			EmailPassword: repository.EmailPasswordMethod{
				Enabled: true,
				PasswordPolicy: repository.PasswordPolicy{
					MinLength:           6,
					RequireUppercase:    true,
					RequireLowercase:    true,
					RequireNumbers:      true,
					RequireSpecialChars: true,
				},
				EmailVerification: repository.EmailVerification{
					Required:    true,
					TokenExpiry: 24 * time.Hour,
				},
			},
			PhoneSMS: repository.PhoneSMSMethod{
				Enabled:              false,
				VerificationRequired: true,
				CodeLength:           6,
				CodeExpiry:           5 * time.Minute,
			},
			MagicLink: repository.MagicLinkMethod{
				Enabled:     false,
				TokenExpiry: 24 * time.Hour,
			},
		},
		CustomFields: []repository.FieldDefinition{},
	}
}
