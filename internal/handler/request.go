package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sakif/blog-platform/internal/apperror"
)

// maxBodyBytes caps request bodies; a post body is text, not uploads.
const maxBodyBytes = 1 << 20

// REQUEST SCHEMAS:
// Each endpoint decodes into one of these tagged structs and validates it
// before the service is called. The service re-checks its own rules, so
// these tags are the transport contract, not the only line of defense.

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (registerRequest) requiredMessage() string { return "Name, email, and password are required" }

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (loginRequest) requiredMessage() string { return "Email and password are required" }

// createPostRequest: authorId is checked by the service, because whether it
// is required depends on the configured author mode.
type createPostRequest struct {
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	AuthorID string   `json:"authorId"`
	Tags     []string `json:"tags" validate:"omitempty,max=50,dive,required,max=64"`
}

func (createPostRequest) requiredMessage() string { return "Title and content are required" }

type updatePostRequest struct {
	Title   string   `json:"title" validate:"required"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"omitempty,max=50,dive,required,max=64"`
}

func (updatePostRequest) requiredMessage() string { return "Title and content are required" }

type addCommentRequest struct {
	AuthorID string `json:"authorId" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

func (addCommentRequest) requiredMessage() string { return "Author ID and content are required" }

// requiredMessager lets a schema give all of its required fields one message.
type requiredMessager interface {
	requiredMessage() string
}

var validate = newValidator()

// newValidator reports fields by their JSON names ("authorId", not "AuthorID").
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-capped JSON body into dst and validates it.
// Every failure is an apperror validation error (400).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or fewer", maxBodyBytes))
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}

	return validateRequest(dst)
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("body", "invalid request")
	}

	fe := fieldErrs[0]
	field := fe.Field()
	// Element errors ("tags[0]") keep their own message.
	if fe.Tag() == "required" && !strings.Contains(field, "[") {
		if m, ok := req.(requiredMessager); ok {
			return apperror.ValidationFailed(field, m.requiredMessage())
		}
		return apperror.ValidationFailed(field, field+" is required")
	}
	if fe.Tag() == "max" {
		if fe.Kind() == reflect.Slice {
			return apperror.ValidationFailed(field, fmt.Sprintf("%s must have at most %s entries", field, fe.Param()))
		}
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %s characters or fewer", field, fe.Param()))
	}
	return apperror.ValidationFailed(field, fmt.Sprintf("%s is invalid", field))
}

// queryInt reads a positive integer query parameter, or def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed(name, name+" must be a positive integer")
	}
	return n, nil
}

// pathParam returns a decoded URL parameter.
//
// chi matches on r.URL.RawPath whenever the request has one (an escape such
// as %2B or %2F that Go would not produce itself), and then hands back the
// segment still encoded. Without RawPath it matches on the decoded Path, so
// decoding again would turn a literal "%" into a broken escape.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw, nil
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperror.ValidationFailed(name, name+" is not a valid URL path segment")
	}
	return value, nil
}
