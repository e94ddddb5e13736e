// Package validation checks request structs with go-playground/validator and
// turns failures into field-keyed messages.
//
//	type AddBookRequest struct {
//	    Title  string `json:"title" validate:"required,max=512"`
//	    Rating *int   `json:"rating" validate:"omitempty,min=1,max=5"`
//	}
//
//	if err := validation.Validate(req); err != nil {
//	    var verr *validation.Error
//	    errors.As(err, &verr) // verr.Fields["title"] == "is required"
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/readnext/internal/entities"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Error lists every failed field with a short message.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
			return entities.IsKnownGenre(fl.Field().String())
		})
		_ = v.RegisterValidation("trope", func(fl validator.FieldLevel) bool {
			return entities.IsKnownTrope(fl.Field().String())
		})
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return entities.ReadingStatus(fl.Field().String()).Valid()
		})

		validate = v
	})
	return validate
}

// Validate checks s against its validate tags.
func Validate(s any) error {
	if err := instance().Struct(s); err != nil {
		return formatError(err)
	}
	return nil
}

func formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[fieldPath(e)] = friendlyMessage(e)
	}
	return &Error{Fields: fields}
}

// fieldPath drops the top-level struct name: "AddBookRequest.title" -> "title".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if isNumeric(e.Kind()) {
			return "must be at least " + e.Param()
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if isNumeric(e.Kind()) {
			return "must be at most " + e.Param()
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "status":
		return "must be one of: want_to_read, reading, read"
	case "genre":
		return "is not a known genre"
	case "trope":
		return "is not a known trope"
	case "unique":
		return "must not contain duplicates"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
