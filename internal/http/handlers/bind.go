package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

const invalidInputs = "Invalid inputs passed, please check your data."

type normalizer interface {
	Normalize()
}

// Bind decodes the request by its content type (JSON, urlencoded or multipart form) and
// validates it. Requests that know how to normalize themselves are normalized before the
// final validation, so " Ada@Example.com " passes the email rule as "ada@example.com".
// On failure a 422 is recorded on ctx and false is returned.
func Bind(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, binding.Default(ctx.Request.Method, ctx.ContentType()))
}

// BindJSON is Bind restricted to JSON bodies.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, binding.JSON)
}

func bindWith(ctx *gin.Context, out interface{}, b binding.Binding) bool {
	err := ctx.ShouldBindWith(out, b)

	// decoding fills the struct before validating, so a validation failure can still
	// be retried on the normalized values
	var validatorError validator.ValidationErrors
	if n, ok := out.(normalizer); ok && (err == nil || errors.As(err, &validatorError)) {
		n.Normalize()
		err = binding.Validator.ValidateStruct(out)
	}

	if err != nil {
		_ = ctx.Error(apperr.Validation(invalidInputs).WithDetails(parseBindError(err, out)))
		return false
	}

	return true
}

func parseBindError(err error, out interface{}) interface{} {
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		rootType := baseStructType(out)
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			rule := fieldError.Tag()
			param := fieldError.Param()

			fields = append(fields, FieldError{
				Field:   jsonFieldName(rootType, fieldError.StructField()),
				Rule:    rule,
				Param:   param,
				Message: validationMessage(rule, param),
			})
		}
		return gin.H{"fields": fields}
	}

	// in the event of bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return gin.H{
			"json": "invalid_json_syntax",
		}
	}

	// in the event of a type mismatch; Field already holds the json key

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
				},
			},
		}
	}

	return gin.H{"reason": err.Error()}
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

// jsonFieldName maps a Go field of a request struct to the key clients sent.
// Request types are flat, so only top-level fields are looked up.
func jsonFieldName(rootType reflect.Type, goName string) string {
	if rootType == nil {
		return goName
	}

	sf, ok := rootType.FieldByName(goName)
	if !ok {
		return goName
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return goName
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
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
