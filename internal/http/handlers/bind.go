package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("maxbytes", maxBytes)
	}
}

// maxBytes limits the encoded length of a string; max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

type FieldError struct {
	Field   string
	Rule    string
	Param   string
	Message string
}

func (f FieldError) String() string {
	return f.Field + " " + f.Message
}

// BindForm binds a url-encoded form into out and validates its binding tags.
func BindForm(ctx *gin.Context, out interface{}) []FieldError {
	err := ctx.ShouldBindWith(out, binding.Form)

	if err != nil {
		return parseBindError(err, out)
	}

	return nil
}

// Summary joins field errors into one notice line.
func Summary(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   formName(rootType, fieldError.StructField()),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return fields
	}

	// body too large, malformed encoding and the like
	return []FieldError{{Field: "form", Rule: "parse", Message: "could not be read"}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func formName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return strings.ToLower(structField)
	}

	sf, ok := rootType.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}

	name, _, _ := strings.Cut(sf.Tag.Get("form"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(structField)
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "maxbytes":
		return "must be at most " + param + " bytes"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
