package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func codes(errs []FieldError) map[string]string {
	out := map[string]string{}
	for _, e := range errs {
		out[e.Field] = e.Code
	}
	return out
}

func TestValidateFieldsCollectsAllErrors(t *testing.T) {
	fields := []repository.FieldDefinition{
		{Name: "nickname", Type: repository.FieldString, Required: true, Constraints: repository.FieldConstraints{MinLength: intp(3)}},
		{Name: "age", Type: repository.FieldNumber, Constraints: repository.FieldConstraints{Min: floatp(18)}},
		{Name: "site", Type: repository.FieldURL},
		{Name: "contact", Type: repository.FieldEmail},
		{Name: "mobile", Type: repository.FieldPhone},
		{Name: "plan", Type: repository.FieldString, Constraints: repository.FieldConstraints{Enum: []string{"free", "pro"}}},
		{Name: "birth", Type: repository.FieldDate},
		{Name: "optin", Type: repository.FieldBoolean},
	}
	payload := map[string]any{
		"nickname": "ab",
		"age":      17,
		"site":     "ftp://x",
		"contact":  "nope",
		"mobile":   "12",
		"plan":     "gold",
		"birth":    "yesterday",
		"optin":    "si",
	}
	got := codes(ValidateFields(payload, fields))
	require.Equal(t, map[string]string{
		"nickname": "min_length",
		"age":      "min",
		"site":     "format",
		"contact":  "format",
		"mobile":   "format",
		"plan":     "enum",
		"birth":    "type",
		"optin":    "type",
	}, got)
}

func TestValidateFieldsValidPayload(t *testing.T) {
	fields := []repository.FieldDefinition{
		{Name: "nickname", Type: repository.FieldString, Required: true, Constraints: repository.FieldConstraints{Pattern: `^[a-z]+$`}},
		{Name: "birth", Type: repository.FieldDate},
		{Name: "site", Type: repository.FieldURL},
		{Name: "avatar", Type: repository.FieldImage, Constraints: repository.FieldConstraints{MaxWidth: 512, MaxHeight: 512}},
	}
	payload := map[string]any{
		"nickname": "gopher",
		"birth":    "1990-01-31",
		"site":     "https://go.dev",
		"avatar":   map[string]any{"mimetype": "image/png", "size": 1024, "width": 256, "height": 256},
	}
	require.Empty(t, ValidateFields(payload, fields))
}

func TestImageConstraints(t *testing.T) {
	fields := []repository.FieldDefinition{{Name: "avatar", Type: repository.FieldImage, Constraints: repository.FieldConstraints{MaxFileSize: 100}}}
	errs := ValidateFields(map[string]any{"avatar": FileMeta{MimeType: "image/webp", Size: 200}}, fields)
	require.Len(t, errs, 2)
	require.Equal(t, "file_type", errs[0].Code)
	require.Equal(t, "file_size", errs[1].Code)
}

func TestHiddenFieldNotRequired(t *testing.T) {
	fields := []repository.FieldDefinition{
		{Name: "employed", Type: repository.FieldBoolean},
		{Name: "company", Type: repository.FieldString, Required: true, Visibility: &repository.Visibility{
			Mode:       repository.VisibilityShow,
			Conditions: []repository.Condition{{Field: "employed", Operator: repository.OpEquals, Value: true}},
		}},
	}
	require.Empty(t, ValidateFields(map[string]any{"employed": false}, fields))
	errs := ValidateFields(map[string]any{"employed": true}, fields)
	require.Equal(t, map[string]string{"company": "required"}, codes(errs))
}

func TestDependencies(t *testing.T) {
	fields := []repository.FieldDefinition{
		{Name: "country", Type: repository.FieldString},
		{Name: "state", Type: repository.FieldString, Dependencies: []repository.Dependency{{
			Field: "country", Type: repository.DependencyRequire,
			Conditions: []repository.Condition{{Field: "country", Operator: repository.OpEquals, Value: "US"}},
		}}},
		{Name: "vat", Type: repository.FieldString, Required: true, Dependencies: []repository.Dependency{{
			Field: "country", Type: repository.DependencyOptional,
		}}},
		{Name: "promo", Type: repository.FieldString, Required: true, Dependencies: []repository.Dependency{{
			Field: "country", Type: repository.DependencyEnable,
		}}},
		{Name: "legacy", Type: repository.FieldString, Required: true, Dependencies: []repository.Dependency{{
			Field: "country", Type: repository.DependencyDisable,
		}}},
	}

	// sin country: state opcional, vat requerido, promo deshabilitado, legacy requerido
	got := codes(ValidateFields(map[string]any{}, fields))
	require.Equal(t, map[string]string{"vat": "required", "legacy": "required"}, got)

	// country=US: state requerido, vat opcional, promo requerido, legacy deshabilitado
	got = codes(ValidateFields(map[string]any{"country": "US"}, fields))
	require.Equal(t, map[string]string{"state": "required", "promo": "required"}, got)
}

func TestFilterProfileDropsUnknownAndHidden(t *testing.T) {
	fields := []repository.FieldDefinition{
		{Name: "a", Type: repository.FieldString},
		{Name: "b", Type: repository.FieldString, Visibility: &repository.Visibility{
			Mode:       repository.VisibilityHide,
			Conditions: []repository.Condition{{Field: "a", Operator: repository.OpIsNotEmpty}},
		}},
	}
	out := FilterProfile(map[string]any{"a": "x", "b": "y", "zzz": 1}, fields)
	require.Equal(t, map[string]any{"a": "x"}, out)
}

func TestValidateDefinition(t *testing.T) {
	bad := repository.FieldDefinition{
		Name: "x", Type: "blob",
		Constraints:  repository.FieldConstraints{MinLength: intp(5), MaxLength: intp(2), Pattern: "("},
		Dependencies: []repository.Dependency{{Field: "", Type: "toggle"}},
	}
	errs := ValidateDefinition(bad)
	require.Len(t, errs, 5)
	require.Empty(t, ValidateDefinition(repository.FieldDefinition{Name: "ok", Type: repository.FieldString}))
}
