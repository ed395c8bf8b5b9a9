package password

import "strings"

// SpecialChars es el set de caracteres que cuentan como especiales.
const SpecialChars = `!@#$%^&*(),.?":{}|<>`

// Códigos de violación, en el orden en que se reportan.
const (
	ViolationMinLength = "min_length"
	ViolationUppercase = "uppercase"
	ViolationLowercase = "lowercase"
	ViolationDigit     = "digit"
	ViolationSpecial   = "special"
	ViolationCommon    = "common_password"
)

type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// Validate retorna exactamente el conjunto de requisitos incumplidos.
func (p Policy) Validate(s string) (ok bool, violations []string) {
	if len([]rune(s)) < p.MinLength {
		violations = append(violations, ViolationMinLength)
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasU = true
		case r >= 'a' && r <= 'z':
			hasL = true
		case r >= '0' && r <= '9':
			hasD = true
		case strings.ContainsRune(SpecialChars, r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		violations = append(violations, ViolationUppercase)
	}
	if p.RequireLower && !hasL {
		violations = append(violations, ViolationLowercase)
	}
	if p.RequireDigit && !hasD {
		violations = append(violations, ViolationDigit)
	}
	if p.RequireSpecial && !hasS {
		violations = append(violations, ViolationSpecial)
	}
	return len(violations) == 0, violations
}
