// Package validation decodes and checks inbound user payloads.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a rejected request. Details maps field names to
// the reason each was rejected.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	fields := make([]string, 0, len(e.Details))
	for field, reason := range e.Details {
		fields = append(fields, field+" "+reason)
	}
	slices.Sort(fields)
	return e.Message + ": " + strings.Join(fields, ", ")
}

func invalid(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// CreateUserInput is a normalized create request.
type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// createUserBody uses pointers so an absent field and null both decode to nil.
type createUserBody struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeCreateUser reads one JSON object with string fields name and email.
// Both are trimmed and must be non-empty. Unknown fields are ignored.
// An *http.MaxBytesError from the reader is returned unchanged.
func DecodeCreateUser(r io.Reader) (CreateUserInput, error) {
	var body createUserBody

	dec := json.NewDecoder(r)
	if err := dec.Decode(&body); err != nil {
		return CreateUserInput{}, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err != nil && isMaxBytes(err) {
			return CreateUserInput{}, err
		}
		return CreateUserInput{}, invalid("request body must contain a single JSON object")
	}

	input := CreateUserInput{
		Name:  trimmed(body.Name),
		Email: trimmed(body.Email),
	}
	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return CreateUserInput{}, fmt.Errorf("validate create user: %w", err)
		}
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = reason(fe)
		}
		return CreateUserInput{}, &ValidationError{Message: "invalid request body", Details: details}
	}

	return input, nil
}

// ParseID parses a base-10 user id taken from the request path.
func ParseID(raw string) (int64, error) {
	if raw == "" {
		return 0, &ValidationError{Message: "invalid user id", Details: map[string]string{"id": "is required"}}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationError{Message: "invalid user id", Details: map[string]string{"id": "must be an integer"}}
	}
	return id, nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case isMaxBytes(err):
		return err
	case errors.Is(err, io.EOF):
		return invalid("request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return invalid("malformed JSON")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return invalid("request body must be a JSON object")
		}
		return &ValidationError{
			Message: "invalid request body",
			Details: map[string]string{typeErr.Field: "must be a string"},
		}
	default:
		return invalid("malformed JSON")
	}
}

func isMaxBytes(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return "is invalid"
	}
}
