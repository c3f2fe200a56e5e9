package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/go-playground/validator/v10"
)

// Payload is the validated form of a request body: the typed schema value and
// the storage fields derived from it. Unknown input fields never reach it.
type Payload struct {
	schema any
	fields map[string]any
}

// Schema returns the decoded schema pointer. Callers must not mutate it.
func (p Payload) Schema() any {
	return p.schema
}

// Fields returns a copy of the storage field map.
func (p Payload) Fields() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// SelfValidator lets a schema add rules struct tags cannot express.
type SelfValidator interface {
	Validate() error
}

// ParseObject decodes a JSON body that must be an object. Numbers stay as
// json.Number so decimal fields keep their precision.
func ParseObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.New(apperrors.ErrValidation, "request body must be valid JSON", err)
	}
	if dec.More() {
		return nil, apperrors.NewValidation("request body must contain a single JSON object")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperrors.NewValidation("request body must be a JSON object")
	}
	return obj, nil
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("resource_id", func(fl validator.FieldLevel) bool {
		return IsUUID(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Decode maps a sanitized object onto schema (a pointer to a struct) and
// validates it. Fields the schema does not declare are dropped.
func (v *Validator) Decode(obj map[string]any, schema any) (Payload, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return Payload{}, apperrors.New(apperrors.ErrValidation, "request body could not be encoded", err)
	}
	if err := json.Unmarshal(raw, schema); err != nil {
		return Payload{}, typeError(err)
	}
	if err := v.validate.Struct(schema); err != nil {
		return Payload{}, fieldErrors(err)
	}
	if sv, ok := schema.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return Payload{}, apperrors.NewValidation(err.Error())
		}
	}

	fields, err := toFields(schema)
	if err != nil {
		return Payload{}, apperrors.New(apperrors.ErrInternal, "schema encoding failed", err)
	}
	if len(fields) == 0 {
		return Payload{}, apperrors.NewValidation("no updatable fields supplied")
	}
	return Payload{schema: schema, fields: fields}, nil
}

func toFields(schema any) (map[string]any, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func typeError(err error) *apperrors.AppError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.New(apperrors.ErrValidation,
			fmt.Sprintf("%s must be of type %s", typeErr.Field, describeKind(typeErr.Type)), err).
			WithDetail("field", typeErr.Field)
	}
	// decimal and other custom unmarshalers report plain errors
	return apperrors.New(apperrors.ErrValidation, "request body has a field of the wrong type", err)
}

func describeKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func fieldErrors(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.New(apperrors.ErrValidation, "request body is invalid", err)
	}
	msgs := make([]string, 0, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
		fields = append(fields, fe.Field())
	}
	return apperrors.NewValidation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return name + " must be a valid email address"
	case "url":
		return name + " must be a valid URL"
	case "datetime":
		return name + " must be a date in YYYY-MM-DD format"
	case "resource_id":
		return name + " must be a valid identifier"
	case "uppercase":
		return name + " must be uppercase"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}
