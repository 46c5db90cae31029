// Package api serves the storefront's JSON endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/middleware"
)

// Validator checks request bodies. Field names in errors use the json tag.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates dst and converts failures to *domain.ValidationError.
func (v *Validator) Struct(op string, dst any) error {
	err := v.v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err, op, "failed to validate request")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &domain.ValidationError{Op: op, Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "email":
		return fe.Field() + " must be an email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected.
func decodeJSON(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "request body is empty")
		case middleware.IsBodyTooLarge(err):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.NewValidationError(op, typeErr.Field, typeErr.Field+" has the wrong type")
		}
		return domain.WrapError(err, domain.EINVALID, op, "request body is not valid JSON")
	}
	if dec.More() {
		return domain.Invalid(op, "request body must hold a single JSON object")
	}
	return nil
}

// requestUser returns the authenticated identity. A user named in the
// request must be that identity.
func requestUser(r *http.Request, op, claimed string) (domain.Identity, error) {
	id, err := domain.RequireIdentity(r.Context())
	if err != nil {
		return domain.Identity{}, err
	}
	if claimed != "" && !id.Matches(claimed) {
		return domain.Identity{}, domain.Forbidden(op, "user does not match the authenticated identity")
	}
	return id, nil
}

func pathUUID(r *http.Request, op, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(op, name, name+" must be a UUID")
	}
	return id, nil
}
