package repository

import (
	"context"
	"time"
)

// AuthMethod identifica un método de autenticación configurable por tenant.
type AuthMethod string

const (
	MethodEmailPassword  AuthMethod = "emailPassword"
	MethodPhoneSMS       AuthMethod = "phoneSMS"
	MethodMagicLink      AuthMethod = "magicLink"
	MethodSocialGoogle   AuthMethod = "socialGoogle"
	MethodSocialFacebook AuthMethod = "socialFacebook"
	MethodSocialGithub   AuthMethod = "socialGithub"
	MethodTwoFactorApp   AuthMethod = "twoFactorApp"
	MethodTwoFactorPhone AuthMethod = "twoFactorPhone"
	MethodTwoFactorEmail AuthMethod = "twoFactorEmail"
)

// SocialMethodFor mapea "google" → MethodSocialGoogle, etc.
func SocialMethodFor(provider string) (AuthMethod, bool) {
	switch provider {
	case "google":
		return MethodSocialGoogle, true
	case "facebook":
		return MethodSocialFacebook, true
	case "github":
		return MethodSocialGithub, true
	}
	return "", false
}

// ValidationSchema es la configuración por tenant de métodos de login y
// campos de perfil.
type ValidationSchema struct {
	TenantID     string            `json:"tenantId" yaml:"tenantId"`
	AuthMethods  AuthMethods       `json:"authMethods" yaml:"authMethods"`
	CustomFields []FieldDefinition `json:"customFields" yaml:"customFields"`
	Groups       []FieldGroup      `json:"groups,omitempty" yaml:"groups,omitempty"`
	Sections     []FieldSection    `json:"sections,omitempty" yaml:"sections,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt" yaml:"-"`
}

type AuthMethods struct {
	EmailPassword  EmailPasswordMethod `json:"emailPassword" yaml:"emailPassword"`
	PhoneSMS       PhoneSMSMethod      `json:"phoneSMS" yaml:"phoneSMS"`
	MagicLink      MagicLinkMethod     `json:"magicLink" yaml:"magicLink"`
	SocialGoogle   SocialMethod        `json:"socialGoogle" yaml:"socialGoogle"`
	SocialFacebook SocialMethod        `json:"socialFacebook" yaml:"socialFacebook"`
	SocialGithub   SocialMethod        `json:"socialGithub" yaml:"socialGithub"`
	TwoFactorApp   ToggleMethod        `json:"twoFactorApp" yaml:"twoFactorApp"`
	TwoFactorPhone ToggleMethod        `json:"twoFactorPhone" yaml:"twoFactorPhone"`
	TwoFactorEmail ToggleMethod        `json:"twoFactorEmail" yaml:"twoFactorEmail"`
}

type PasswordPolicy struct {
	MinLength           int  `json:"minLength" yaml:"minLength"`
	RequireUppercase    bool `json:"requireUppercase" yaml:"requireUppercase"`
	RequireLowercase    bool `json:"requireLowercase" yaml:"requireLowercase"`
	RequireNumbers      bool `json:"requireNumbers" yaml:"requireNumbers"`
	RequireSpecialChars bool `json:"requireSpecialChars" yaml:"requireSpecialChars"`
}

type EmailVerification struct {
	Required    bool          `json:"required" yaml:"required"`
	TokenExpiry time.Duration `json:"tokenExpiry" yaml:"tokenExpiry"`
}

type EmailPasswordMethod struct {
	Enabled           bool              `json:"enabled" yaml:"enabled"`
	PasswordPolicy    PasswordPolicy    `json:"passwordPolicy" yaml:"passwordPolicy"`
	EmailVerification EmailVerification `json:"emailVerification" yaml:"emailVerification"`
}

type PhoneSMSMethod struct {
	Enabled              bool          `json:"enabled" yaml:"enabled"`
	VerificationRequired bool          `json:"verificationRequired" yaml:"verificationRequired"`
	CodeLength           int           `json:"codeLength" yaml:"codeLength"`
	CodeExpiry           time.Duration `json:"codeExpiry" yaml:"codeExpiry"`
}

type MagicLinkMethod struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	TokenExpiry    time.Duration `json:"tokenExpiry" yaml:"tokenExpiry"`
	AllowedDomains []string      `json:"allowedDomains,omitempty" yaml:"allowedDomains,omitempty"`
}

type SocialMethod struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	ClientID     string   `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	ClientSecret string   `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`
	Scopes       []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

type ToggleMethod struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// ─── Campos custom ───

type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldEmail   FieldKind = "email"
	FieldPhone   FieldKind = "phone"
	FieldURL     FieldKind = "url"
	FieldImage   FieldKind = "image"
)

// FieldDefinition describe un campo del perfil de usuario.
type FieldDefinition struct {
	Name         string           `json:"field" yaml:"field"`
	Type         FieldKind        `json:"type" yaml:"type"`
	Required     bool             `json:"required" yaml:"required"`
	Label        string           `json:"label,omitempty" yaml:"label,omitempty"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty"`
	Constraints  FieldConstraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Visibility   *Visibility      `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Dependencies []Dependency     `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Order        int              `json:"order,omitempty" yaml:"order,omitempty"`
	Group        string           `json:"group,omitempty" yaml:"group,omitempty"`
	Section      string           `json:"section,omitempty" yaml:"section,omitempty"`
}

// FieldConstraints es la bolsa de restricciones; cada tipo usa las suyas.
type FieldConstraints struct {
	MinLength    *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength    *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern      string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enum         []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Min          *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max          *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxFileSize  int64    `json:"maxFileSize,omitempty" yaml:"maxFileSize,omitempty"`
	AllowedTypes []string `json:"allowedTypes,omitempty" yaml:"allowedTypes,omitempty"`
	MaxWidth     int      `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty"`
	MaxHeight    int      `json:"maxHeight,omitempty" yaml:"maxHeight,omitempty"`
}

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpIsEmpty     Operator = "isEmpty"
	OpIsNotEmpty  Operator = "isNotEmpty"
)

type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Condition compara el valor de otro campo del payload. Logic indica cómo
// se combina con el resultado acumulado de las condiciones anteriores.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Logic    Logic    `json:"logic,omitempty" yaml:"logic,omitempty"`
}

type VisibilityMode string

const (
	VisibilityShow VisibilityMode = "show"
	VisibilityHide VisibilityMode = "hide"
)

type Visibility struct {
	Mode       VisibilityMode `json:"type" yaml:"type"`
	Conditions []Condition    `json:"conditions" yaml:"conditions"`
}

type DependencyType string

const (
	DependencyEnable   DependencyType = "enable"
	DependencyDisable  DependencyType = "disable"
	DependencyRequire  DependencyType = "require"
	DependencyOptional DependencyType = "optional"
)

// Dependency se activa cuando Field tiene valor y Conditions se cumplen.
type Dependency struct {
	Field      string         `json:"field" yaml:"field"`
	Type       DependencyType `json:"type" yaml:"type"`
	Conditions []Condition    `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

type FieldGroup struct {
	Name   string   `json:"name" yaml:"name"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Fields []string `json:"fields" yaml:"fields"`
	Order  int      `json:"order,omitempty" yaml:"order,omitempty"`
}

type FieldSection struct {
	Name   string   `json:"name" yaml:"name"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Groups []string `json:"groups" yaml:"groups"`
	Order  int      `json:"order,omitempty" yaml:"order,omitempty"`
}

// SchemaRepository persiste un schema por tenant.
type SchemaRepository interface {
	// Get retorna ErrNotFound si el tenant nunca guardó schema.
	Get(ctx context.Context, tenantID string) (*ValidationSchema, error)
	Upsert(ctx context.Context, s *ValidationSchema) error
}
