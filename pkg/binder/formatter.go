package binder

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

// Validation tags with custom messages.
const (
	date     = "date"
	email    = "email"
	gt       = "gt"
	gte      = "gte"
	isbn     = "isbn"
	lang     = "lang"
	lt       = "lt"
	lte      = "lte"
	mx       = "max"
	mn       = "min"
	ne       = "ne"
	numeric  = "numeric"
	oneof    = "oneof"
	required = "required"
)

var timeType = reflect.TypeOf(time.Time{})

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case required:
		return fmt.Sprintf("%q is required", field)
	case date:
		return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
	case email:
		return fmt.Sprintf("%q is not a valid email", field)
	case isbn:
		return fmt.Sprintf("%q is not a valid ISBN-10 or ISBN-13", field)
	case lang:
		return fmt.Sprintf("%q should be a two-letter language code", field)
	case numeric:
		return fmt.Sprintf("%q should only contain digits", field)
	case gt:
		return fmt.Sprintf("%q must be greater than %s", field, comparedTo(err))
	case gte:
		return fmt.Sprintf("%q must be greater than or equal to %s", field, comparedTo(err))
	case lt:
		return fmt.Sprintf("%q must be less than %s", field, comparedTo(err))
	case lte:
		return fmt.Sprintf("%q must be less than or equal to %s", field, comparedTo(err))
	case mn:
		return boundMessage(err, "greater than or equal to")
	case mx:
		return boundMessage(err, "less than or equal to")
	case ne:
		return fmt.Sprintf("%q can't be %q", field, param)
	case oneof:
		quoted := make([]string, 0, len(strings.Fields(param)))
		for _, p := range strings.Fields(param) {
			quoted = append(quoted, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(quoted, ", "))
	default:
		return fmt.Sprintf("%q failed the %q check", field, err.Tag())
	}
}

// comparedTo is the right-hand side of a comparison tag. Time fields compared
// without a param are compared against now.
func comparedTo(err validator.FieldError) string {
	if err.Param() == "" && err.Type() == timeType {
		return "now"
	}
	return err.Param()
}

// boundMessage renders min/max, which bound the value for numbers and the
// length for strings and slices.
func boundMessage(err validator.FieldError, relation string) string {
	field, param := err.Field(), err.Param()

	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s %s", field, relation, param)
	}

	unit := "character"
	if err.Kind() == reflect.Slice {
		unit = "element"
	}
	if param != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s %s %s", field, relation, param, unit)
}
