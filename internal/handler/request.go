package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their json (or form) name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// DecodeJSON reads the request body into dst and validates it.
// Returns a domain.ValidationError for field failures and EINVALID for
// malformed bodies.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Errorf(domain.EINVALID, "", "Request body is empty")
		}
		return domain.WrapError(err, domain.EINVALID, "", "Invalid JSON body")
	}
	return Validate(dst)
}

// Validate runs struct tag validation and converts failures to a
// domain.ValidationError keyed by field name.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.WrapError(err, domain.EINVALID, "", "Invalid request")
	}

	var out error
	for _, fe := range fieldErrs {
		out = domain.AddFieldError(out, fieldPath(fe), fieldMessage(fe))
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	// Namespace is "Struct.field[0]"; drop the struct name.
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "numeric":
		return "must be numeric"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// PathUUID parses a {name} path value as a UUID.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("", name, "must be a valid UUID")
	}
	return id, nil
}

// ParseUUIDs parses ids that already passed uuid validation.
func ParseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, domain.NewValidationError("", fmt.Sprintf("[%d]", i), "must be a valid UUID")
		}
		out[i] = id
	}
	return out, nil
}
