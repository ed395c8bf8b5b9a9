package schema

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

// Eval evalúa una lista de condiciones contra el payload. La primera
// condición inicializa el resultado; cada siguiente se combina con el
// acumulado según su Logic (and por defecto). Lista vacía = true.
func Eval(conds []repository.Condition, payload map[string]any) bool {
	if len(conds) == 0 {
		return true
	}
	result := evalOne(conds[0], payload)
	for _, c := range conds[1:] {
		v := evalOne(c, payload)
		if c.Logic == repository.LogicOr {
			result = result || v
		} else {
			result = result && v
		}
	}
	return result
}

func evalOne(c repository.Condition, payload map[string]any) bool {
	actual := payload[c.Field]
	switch c.Operator {
	case repository.OpEquals:
		return looseEqual(actual, c.Value)
	case repository.OpNotEquals:
		return !looseEqual(actual, c.Value)
	case repository.OpContains:
		return contains(actual, c.Value)
	case repository.OpNotContains:
		return !contains(actual, c.Value)
	case repository.OpGreaterThan:
		return compare(actual, c.Value) > 0
	case repository.OpLessThan:
		cmp := compare(actual, c.Value)
		return cmp < 0 && cmp != incomparable
	case repository.OpIsEmpty:
		return isEmpty(actual)
	case repository.OpIsNotEmpty:
		return !isEmpty(actual)
	}
	return false
}

func contains(actual, expected any) bool {
	if actual == nil {
		return false
	}
	if s, ok := actual.(string); ok {
		return strings.Contains(s, fmt.Sprint(expected))
	}
	if items, ok := asSlice(actual); ok {
		for _, it := range items {
			if looseEqual(it, expected) {
				return true
			}
		}
	}
	return false
}

const incomparable = -2

// compare retorna -1/0/1, o incomparable si los valores no se pueden ordenar.
// Números se comparan numéricamente; strings (ej. fechas ISO) lexicográficamente.
func compare(a, b any) int {
	if a == nil || b == nil {
		return incomparable
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb)
	}
	return incomparable
}

// IsVisible aplica la regla de visibilidad del campo.
// show: visible si las condiciones se cumplen. hide: oculto si se cumplen.
func IsVisible(f repository.FieldDefinition, payload map[string]any) bool {
	if f.Visibility == nil || len(f.Visibility.Conditions) == 0 {
		return true
	}
	met := Eval(f.Visibility.Conditions, payload)
	if f.Visibility.Mode == repository.VisibilityHide {
		return !met
	}
	return met
}
