package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	h "github.com/rentdesk/rentdesk/internal/helpers"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

type BodyKey struct{}

type QueryKey struct{}

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their json names so error codes match the payload.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate decodes the JSON body into T, validates it and stores it under BodyKey.
func Validate[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data T

		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := decoder.Decode(&data); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		if errs := validateStruct(data); errs != nil {
			h.RespondWithError(w, http.StatusBadRequest, errs)
			return
		}

		ctx := context.WithValue(r.Context(), BodyKey{}, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateQuery decodes the query string into T using its json tags.
func ValidateQuery[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data T

		raw := map[string]any{}
		for key, values := range r.URL.Query() {
			if len(values) == 1 {
				raw[key] = values[0]
			} else {
				raw[key] = values
			}
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &data,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			h.RespondWithError(w, http.StatusInternalServerError, []string{"INTERNAL_SERVER_ERROR"})
			return
		}
		if err = decoder.Decode(raw); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		if errs := validateStruct(data); errs != nil {
			h.RespondWithError(w, http.StatusBadRequest, errs)
			return
		}

		ctx := context.WithValue(r.Context(), QueryKey{}, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateStruct returns one "FIELD_RULE" code per failing field.
func validateStruct(data any) []string {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{"BAD_REQUEST"}
	}

	errs := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errs = append(errs, strings.ToUpper(fmt.Sprintf("%s_%s", fieldErr.Field(), fieldErr.Tag())))
	}
	return errs
}
