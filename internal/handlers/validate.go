package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jeremyjsx/postdesk/internal/posts"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return posts.Platform(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return posts.Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// validationDetails maps each failing field to a short reason.
func validationDetails(err error) map[string]string {
	details := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		details["body"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "required"
		case "platform":
			details[fe.Field()] = "must be one of " + joinValues(posts.Platforms)
		case "status":
			details[fe.Field()] = "must be one of " + joinValues(posts.Statuses)
		case "date":
			details[fe.Field()] = "must be YYYY-MM-DD or RFC3339"
		case "gte":
			details[fe.Field()] = "must be >= " + fe.Param()
		case "lte":
			details[fe.Field()] = "must be <= " + fe.Param()
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		case "min":
			details[fe.Field()] = "must not be empty"
		default:
			details[fe.Field()] = "invalid"
		}
	}
	return details
}

func joinValues[T ~string](values []T) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}

// parseDate accepts a calendar date or an RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}
