package schemas

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/domain"
)

var validate = newValidator()

var registry = map[string]reflect.Type{
	crtv.ModelAssetMetadata:            reflect.TypeOf(crtv.AssetMetadata{}),
	crtv.ModelVideoTokenMetadata:       reflect.TypeOf(crtv.VideoTokenMetadata{}),
	crtv.ModelVideoTokenSimpleProperty: reflect.TypeOf(crtv.SimpleProperty{}),
	crtv.ModelCreatorProfile:           reflect.TypeOf(crtv.CreatorProfile{}),
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// New returns a pointer to a zero value of the entity behind model.
func New(model string) (any, error) {
	typ, ok := registry[model]
	if !ok {
		return nil, domain.Invalid("model", "unknown model "+model)
	}
	return reflect.New(typ).Interface(), nil
}

// Validate checks value against the schema of model. value may be the entity
// or a pointer to it.
func Validate(model string, value any) error {
	expected, ok := registry[model]
	if !ok {
		return domain.Invalid("model", "unknown model "+model)
	}
	if value == nil {
		return domain.Invalid("value", "value is required")
	}

	typ := reflect.TypeOf(value)
	if typ.Kind() == reflect.Pointer {
		if reflect.ValueOf(value).IsNil() {
			return domain.Invalid("value", "value is required")
		}
		typ = typ.Elem()
	}
	if typ != expected {
		return domain.Invalid("value", fmt.Sprintf("%s is not a %s", typ.Name(), model))
	}

	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Invalid(fe.Field(), describe(fe))
	}
	return domain.Invalid("value", err.Error())
}

// ValidateContent decodes generic document content into the entity of model
// and validates it.
func ValidateContent(model string, content map[string]any) (any, error) {
	value, err := New(model)
	if err != nil {
		return nil, err
	}
	err = crtv.FromContent(content, value)
	if err != nil {
		return nil, domain.Invalid("value", "content does not match "+model)
	}
	err = Validate(model, value)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eth_addr":
		return "must be a 0x address"
	case "numeric":
		return "must be numeric"
	default:
		return "failed on " + fe.Tag()
	}
}
