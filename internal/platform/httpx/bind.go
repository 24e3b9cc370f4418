package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors carries per-field validation failures.
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	return fmt.Sprintf("%s: %d invalid field(s)", ErrValidation, len(e.Fields))
}

func (e *FieldErrors) Unwrap() error { return ErrValidation }

// Validate runs struct validation and converts failures to *FieldErrors.
func Validate(target any) error {
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return &FieldErrors{Fields: fields}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Bind decodes a JSON body into target, rejecting unknown fields, then validates it.
func Bind(w http.ResponseWriter, r *http.Request, target any) error {
	if err := Decode(w, r, target); err != nil {
		return err
	}
	return Validate(target)
}

// Decode reads a single JSON value into target without struct validation.
func Decode(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body required", ErrValidation)
		}
		return fmt.Errorf("%w: malformed request body", ErrValidation)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after body", ErrValidation)
	}
	return nil
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", ErrValidation, name)
	}
	return id, nil
}
