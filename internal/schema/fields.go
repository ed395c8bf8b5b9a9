package schema

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s-]{8,}$`)
)

const (
	defaultMaxFileSize = 5 * 1024 * 1024
)

var defaultImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// FieldError es una violación sobre un campo del perfil.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Strings aplana una lista de FieldError para autherr.Validation.
func Strings(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}

// FileMeta describe un archivo subido para campos image.
type FileMeta struct {
	MimeType string
	Size     int64
	Width    int
	Height   int
}

func fileMetaFrom(v any) (FileMeta, bool) {
	switch x := v.(type) {
	case FileMeta:
		return x, true
	case *FileMeta:
		if x == nil {
			return FileMeta{}, false
		}
		return *x, true
	case map[string]any:
		var m FileMeta
		m.MimeType, _ = x["mimetype"].(string)
		if m.MimeType == "" {
			m.MimeType, _ = x["mimeType"].(string)
		}
		if f, ok := toFloat(x["size"]); ok {
			m.Size = int64(f)
		}
		if f, ok := toFloat(x["width"]); ok {
			m.Width = int(f)
		}
		if f, ok := toFloat(x["height"]); ok {
			m.Height = int(f)
		}
		return m, m.MimeType != ""
	}
	return FileMeta{}, false
}

// fieldState resuelve si un campo aplica y si es requerido para este payload.
func fieldState(f repository.FieldDefinition, payload map[string]any) (enabled, required bool) {
	if !IsVisible(f, payload) {
		return false, false
	}
	enabled, required = true, f.Required
	for _, d := range f.Dependencies {
		active := !isEmpty(payload[d.Field]) && Eval(d.Conditions, payload)
		switch d.Type {
		case repository.DependencyEnable:
			if !active {
				enabled = false
			}
		case repository.DependencyDisable:
			if active {
				enabled = false
			}
		case repository.DependencyRequire:
			if active {
				required = true
			}
		case repository.DependencyOptional:
			if active {
				required = false
			}
		}
	}
	return enabled, required
}

// ValidateFields valida el payload contra las definiciones y retorna todas
// las violaciones (no corta en la primera). Campos ocultos o deshabilitados
// no se validan.
func ValidateFields(payload map[string]any, fields []repository.FieldDefinition) []FieldError {
	var errs []FieldError
	for _, f := range fields {
		enabled, required := fieldState(f, payload)
		if !enabled {
			continue
		}
		v, present := payload[f.Name]
		if !present || isEmpty(v) {
			if required {
				errs = append(errs, FieldError{f.Name, "required", fmt.Sprintf("%s is required", f.Name)})
			}
			continue
		}
		errs = append(errs, validateValue(f, v)...)
	}
	return errs
}

func validateValue(f repository.FieldDefinition, v any) []FieldError {
	c := f.Constraints
	fail := func(code, format string, args ...any) []FieldError {
		return []FieldError{{f.Name, code, fmt.Sprintf(format, args...)}}
	}

	switch f.Type {
	case repository.FieldString, "":
		s, ok := v.(string)
		if !ok {
			return fail("type", "must be a string")
		}
		var errs []FieldError
		n := utf8.RuneCountInString(s)
		if c.MinLength != nil && n < *c.MinLength {
			errs = append(errs, FieldError{f.Name, "min_length", fmt.Sprintf("must be at least %d characters", *c.MinLength)})
		}
		if c.MaxLength != nil && n > *c.MaxLength {
			errs = append(errs, FieldError{f.Name, "max_length", fmt.Sprintf("must be at most %d characters", *c.MaxLength)})
		}
		if c.Pattern != "" {
			re, err := regexp.Compile(c.Pattern)
			if err != nil || !re.MatchString(s) {
				errs = append(errs, FieldError{f.Name, "pattern", "has an invalid format"})
			}
		}
		if len(c.Enum) > 0 && !containsString(c.Enum, s) {
			errs = append(errs, FieldError{f.Name, "enum", fmt.Sprintf("must be one of: %s", strings.Join(c.Enum, ", "))})
		}
		return errs

	case repository.FieldNumber:
		n, ok := toFloat(v)
		if !ok {
			return fail("type", "must be a number")
		}
		var errs []FieldError
		if c.Min != nil && n < *c.Min {
			errs = append(errs, FieldError{f.Name, "min", fmt.Sprintf("must be at least %v", *c.Min)})
		}
		if c.Max != nil && n > *c.Max {
			errs = append(errs, FieldError{f.Name, "max", fmt.Sprintf("must be at most %v", *c.Max)})
		}
		return errs

	case repository.FieldBoolean:
		switch x := v.(type) {
		case bool:
			return nil
		case string:
			if x == "true" || x == "false" {
				return nil
			}
		}
		return fail("type", "must be a boolean")

	case repository.FieldDate:
		switch x := v.(type) {
		case time.Time:
			return nil
		case string:
			if _, err := time.Parse(time.RFC3339, x); err == nil {
				return nil
			}
			if _, err := time.Parse(time.DateOnly, x); err == nil {
				return nil
			}
		}
		return fail("type", "must be a valid date")

	case repository.FieldEmail:
		s, ok := v.(string)
		if !ok || !emailRe.MatchString(s) {
			return fail("format", "must be a valid email")
		}
		return nil

	case repository.FieldPhone:
		s, ok := v.(string)
		if !ok || !phoneRe.MatchString(s) {
			return fail("format", "must be a valid phone number")
		}
		return nil

	case repository.FieldURL:
		s, ok := v.(string)
		if !ok {
			return fail("format", "must be a valid URL")
		}
		u, err := url.ParseRequestURI(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fail("format", "must be a valid URL")
		}
		return nil

	case repository.FieldImage:
		m, ok := fileMetaFrom(v)
		if !ok {
			return fail("type", "must be an image")
		}
		var errs []FieldError
		allowed := c.AllowedTypes
		if len(allowed) == 0 {
			allowed = defaultImageTypes
		}
		if !containsString(allowed, m.MimeType) {
			errs = append(errs, FieldError{f.Name, "file_type", fmt.Sprintf("type must be one of: %s", strings.Join(allowed, ", "))})
		}
		maxSize := c.MaxFileSize
		if maxSize == 0 {
			maxSize = defaultMaxFileSize
		}
		if m.Size > maxSize {
			errs = append(errs, FieldError{f.Name, "file_size", fmt.Sprintf("size must not exceed %d bytes", maxSize)})
		}
		if (c.MaxWidth > 0 && m.Width > c.MaxWidth) || (c.MaxHeight > 0 && m.Height > c.MaxHeight) {
			errs = append(errs, FieldError{f.Name, "dimensions", fmt.Sprintf("dimensions must not exceed %dx%d", c.MaxWidth, c.MaxHeight)})
		}
		return errs
	}
	return fail("type", "unsupported field type %q", f.Type)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FilterProfile descarta claves que no son campos definidos o que no aplican
// para este payload (ocultos/deshabilitados).
func FilterProfile(payload map[string]any, fields []repository.FieldDefinition) map[string]any {
	out := make(map[string]any, len(payload))
	for _, f := range fields {
		v, ok := payload[f.Name]
		if !ok {
			continue
		}
		if enabled, _ := fieldState(f, payload); enabled {
			out[f.Name] = v
		}
	}
	return out
}

var validKinds = map[repository.FieldKind]bool{
	repository.FieldString: true, repository.FieldNumber: true, repository.FieldBoolean: true,
	repository.FieldDate: true, repository.FieldEmail: true, repository.FieldPhone: true,
	repository.FieldURL: true, repository.FieldImage: true,
}

var validOperators = map[repository.Operator]bool{
	repository.OpEquals: true, repository.OpNotEquals: true, repository.OpContains: true,
	repository.OpNotContains: true, repository.OpGreaterThan: true, repository.OpLessThan: true,
	repository.OpIsEmpty: true, repository.OpIsNotEmpty: true,
}

var validDependencyTypes = map[repository.DependencyType]bool{
	repository.DependencyEnable: true, repository.DependencyDisable: true,
	repository.DependencyRequire: true, repository.DependencyOptional: true,
}

// ValidateDefinition chequea que la definición del campo sea consistente.
func ValidateDefinition(f repository.FieldDefinition) []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, f.Name+": "+fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, "field name is required")
	}
	if !validKinds[f.Type] {
		add("unknown type %q", f.Type)
	}
	c := f.Constraints
	if c.MinLength != nil && *c.MinLength < 0 {
		add("minLength must be >= 0")
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		add("minLength must be <= maxLength")
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		add("min must be <= max")
	}
	if c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			add("invalid pattern: %v", err)
		}
	}
	if f.Visibility != nil {
		if f.Visibility.Mode != repository.VisibilityShow && f.Visibility.Mode != repository.VisibilityHide {
			add("visibility type must be show or hide")
		}
		errs = append(errs, validateConditions(f.Name, f.Visibility.Conditions)...)
	}
	for _, d := range f.Dependencies {
		if !validDependencyTypes[d.Type] {
			add("unknown dependency type %q", d.Type)
		}
		if d.Field == "" {
			add("dependency field is required")
		}
		errs = append(errs, validateConditions(f.Name, d.Conditions)...)
	}
	return errs
}

func validateConditions(owner string, conds []repository.Condition) []string {
	var errs []string
	for _, c := range conds {
		if c.Field == "" {
			errs = append(errs, owner+": condition field is required")
		}
		if !validOperators[c.Operator] {
			errs = append(errs, fmt.Sprintf("%s: unknown operator %q", owner, c.Operator))
		}
		if c.Logic != "" && c.Logic != repository.LogicAnd && c.Logic != repository.LogicOr {
			errs = append(errs, fmt.Sprintf("%s: unknown logic %q", owner, c.Logic))
		}
	}
	return errs
}

// Ordered retorna los campos ordenados por Order (estable).
func Ordered(fields []repository.FieldDefinition) []repository.FieldDefinition {
	out := append([]repository.FieldDefinition(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
