package schema

import (
	"fmt"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

// edges arma el grafo campo → campos referenciados por visibilidad o dependencias.
func edges(fields []repository.FieldDefinition) map[string][]string {
	g := make(map[string][]string, len(fields))
	for _, f := range fields {
		var out []string
		if f.Visibility != nil {
			for _, c := range f.Visibility.Conditions {
				out = append(out, c.Field)
			}
		}
		for _, d := range f.Dependencies {
			out = append(out, d.Field)
			for _, c := range d.Conditions {
				out = append(out, c.Field)
			}
		}
		g[f.Name] = out
	}
	return g
}

// findCycle hace DFS con pila de recursión explícita (iterativa, sin límite
// de profundidad). Retorna el campo desde el que se detectó el ciclo.
func findCycle(fields []repository.FieldDefinition) (string, bool) {
	g := edges(fields)
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g))

	type frame struct {
		node string
		next int
	}
	for _, f := range fields {
		root := f.Name
		if color[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		color[root] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g[top.node]
			if top.next >= len(deps) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++
			if _, known := g[dep]; !known {
				continue
			}
			switch color[dep] {
			case grey:
				return root, true
			case white:
				color[dep] = grey
				stack = append(stack, frame{node: dep})
			}
		}
	}
	return "", false
}

// Check valida el schema completo: definiciones, nombres únicos y ausencia
// de ciclos. Duplicados y definiciones inválidas → ValidationFailed; ciclo →
// SchemaCycleDetected.
func Check(s *repository.ValidationSchema) error {
	if s == nil {
		return autherr.New(autherr.ValidationFailed, "schema is required")
	}
	var violations []string
	seen := make(map[string]bool, len(s.CustomFields))
	for _, f := range s.CustomFields {
		if seen[f.Name] {
			violations = append(violations, fmt.Sprintf("duplicate field name: %s", f.Name))
		}
		seen[f.Name] = true
		violations = append(violations, ValidateDefinition(f)...)
	}

	am := s.AuthMethods
	if am.EmailPassword.PasswordPolicy.MinLength < 0 {
		violations = append(violations, "passwordPolicy.minLength must be >= 0")
	}
	if am.PhoneSMS.CodeLength != 0 && (am.PhoneSMS.CodeLength < 4 || am.PhoneSMS.CodeLength > 10) {
		violations = append(violations, "phoneSMS.codeLength must be between 4 and 10")
	}
	if len(violations) > 0 {
		return autherr.Validation("invalid schema", violations)
	}

	if name, ok := findCycle(s.CustomFields); ok {
		return autherr.New(autherr.SchemaCycleDetected, "circular dependency detected involving field: "+name)
	}
	return nil
}
