package schema

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldType identifies how a submitted value is parsed and checked.
type FieldType string

const (
	TypeText   FieldType = "text"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
	TypeChoice FieldType = "choice"
	TypeDate   FieldType = "date"
	TypeMoney  FieldType = "money"
	TypeEmail  FieldType = "email"
)

// Field defines validation rules for one form field.
type Field struct {
	Name      string
	Type      FieldType
	Required  bool
	MinLength int
	MaxLength int
	Minimum   *int
	Maximum   *int
	Pattern   string
	Choices   []string
	Default   any
	// RequiredWhen makes the field conditionally required based on the other
	// submitted values, used for progressively disclosed fields.
	RequiredWhen func(values map[string]string) bool
	// Error overrides the generic required-field message.
	Error string
}

// ValidationRule is a custom cross-field rule run after per-field checks.
type ValidationRule interface {
	Validate(ctx context.Context, clean map[string]any) *FieldError
	GetName() string
}

// ValidationRuleFunc is a function adapter for ValidationRule.
type ValidationRuleFunc func(ctx context.Context, clean map[string]any) *FieldError

func (f ValidationRuleFunc) Validate(ctx context.Context, clean map[string]any) *FieldError {
	return f(ctx, clean)
}

func (f ValidationRuleFunc) GetName() string {
	return "anonymous"
}

// Form is an immutable per-stage schema. Validation produces a transient
// Result; the Form itself is never mutated by a request.
type Form struct {
	Name   string
	Fields []*Field
	Rules  []ValidationRule
}

// NewForm creates a form schema.
func NewForm(name string, fields ...*Field) *Form {
	return &Form{Name: name, Fields: fields}
}

// AddRule appends a custom cross-field rule and returns the form for
// chaining.
func (f *Form) AddRule(rule ValidationRule) *Form {
	f.Rules = append(f.Rules, rule)
	return f
}

// Field returns the named field definition, or nil.
func (f *Form) Field(name string) *Field {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld
		}
	}
	return nil
}

// FieldError is a single validation error attached to one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface for FieldError.
func (fe FieldError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fe.Field, fe.Message)
}

// Result is the transient outcome of validating one submission.
type Result struct {
	Valid  bool           `json:"valid"`
	Clean  map[string]any `json:"clean"`
	Errors []FieldError   `json:"errors,omitempty"`
}

// ErrorFor returns the first error message for a field, or "".
func (r *Result) ErrorFor(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

func (r *Result) addError(e FieldError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

// Validate checks raw submitted values against the schema. Unknown submitted
// keys are ignored; cleaned values are typed per the field definition.
func (f *Form) Validate(ctx context.Context, raw map[string][]string) *Result {
	result := &Result{Valid: true, Clean: make(map[string]any)}

	// Flatten to first values for conditional-required predicates.
	flat := make(map[string]string, len(raw))
	for k, v := range raw {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}

	for _, field := range f.Fields {
		value, present := flat[field.Name]
		value = strings.TrimSpace(value)

		required := field.Required
		if field.RequiredWhen != nil {
			required = field.RequiredWhen(flat)
		}

		if !present || value == "" {
			if required {
				msg := field.Error
				if msg == "" {
					msg = "required field is missing"
				}
				result.addError(FieldError{
					Field:   field.Name,
					Message: msg,
					Code:    "REQUIRED_FIELD_MISSING",
				})
			}
			continue
		}

		clean, fieldErr := f.cleanValue(field, value)
		if fieldErr != nil {
			result.addError(*fieldErr)
			continue
		}
		result.Clean[field.Name] = clean
	}

	if !result.Valid {
		return result
	}

	for _, rule := range f.Rules {
		if fieldErr := rule.Validate(ctx, result.Clean); fieldErr != nil {
			result.addError(*fieldErr)
		}
	}

	return result
}

func (f *Form) cleanValue(field *Field, value string) (any, *FieldError) {
	switch field.Type {
	case TypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &FieldError{Field: field.Name, Message: "value must be a whole number", Code: "TYPE_MISMATCH", Value: value}
		}
		if field.Minimum != nil && n < *field.Minimum {
			return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("value %d is less than minimum %d", n, *field.Minimum), Code: "MINIMUM_VIOLATION", Value: n}
		}
		if field.Maximum != nil && n > *field.Maximum {
			return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("value %d exceeds maximum %d", n, *field.Maximum), Code: "MAXIMUM_VIOLATION", Value: n}
		}
		return n, nil

	case TypeBool:
		switch strings.ToLower(value) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return nil, &FieldError{Field: field.Name, Message: "value must be yes or no", Code: "TYPE_MISMATCH", Value: value}

	case TypeChoice:
		for _, choice := range field.Choices {
			if value == choice {
				return value, nil
			}
		}
		return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("value is not in allowed choices: %v", field.Choices), Code: "ENUM_VIOLATION", Value: value}

	case TypeDate:
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return nil, &FieldError{Field: field.Name, Message: "invalid date format (expected YYYY-MM-DD)", Code: "FORMAT_VIOLATION", Value: value}
		}
		return t.Format("2006-01-02"), nil

	case TypeMoney:
		amount, err := strconv.ParseFloat(strings.TrimPrefix(value, "£"), 64)
		if err != nil || amount < 0 {
			return nil, &FieldError{Field: field.Name, Message: "invalid amount", Code: "FORMAT_VIOLATION", Value: value}
		}
		return amount, nil

	case TypeEmail:
		if !emailRegex.MatchString(value) {
			return nil, &FieldError{Field: field.Name, Message: "invalid email format", Code: "FORMAT_VIOLATION", Value: value}
		}
		return value, nil

	default: // TypeText
		if field.MinLength > 0 && len(value) < field.MinLength {
			return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("string length %d is less than minimum %d", len(value), field.MinLength), Code: "MIN_LENGTH_VIOLATION", Value: value}
		}
		if field.MaxLength > 0 && len(value) > field.MaxLength {
			return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("string length %d exceeds maximum %d", len(value), field.MaxLength), Code: "MAX_LENGTH_VIOLATION", Value: value}
		}
		if field.Pattern != "" {
			regex, err := regexp.Compile(field.Pattern)
			if err != nil {
				return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("invalid pattern: %s", field.Pattern), Code: "INVALID_PATTERN", Value: value}
			}
			if !regex.MatchString(value) {
				return nil, &FieldError{Field: field.Name, Message: fmt.Sprintf("value does not match pattern: %s", field.Pattern), Code: "PATTERN_VIOLATION", Value: value}
			}
		}
		return value, nil
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// URNPattern matches a unique reference number: two-digit region code, two
// letters, up to seven digits, and a two-digit year, separated by slashes.
const URNPattern = `^[0-9]{2}/[A-Za-z]{2}/[0-9]{1,7}/[0-9]{2}$`

// PostcodePattern is a permissive UK postcode check; the authoritative match
// happens against court records outside this service.
const PostcodePattern = `^[A-Za-z]{1,2}[0-9][A-Za-z0-9]?\s*[0-9][A-Za-z]{2}$`
