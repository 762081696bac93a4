package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var decoder = form.NewDecoder()

var Validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeForm parses the url-encoded or multipart body of r into v.
func DecodeForm(r *http.Request, v any) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return err
		}
	} else if err := r.ParseForm(); err != nil {
		return err
	}
	return decoder.Decode(v, r.Form)
}

// DecodeQuery decodes the query string of r into v.
func DecodeQuery(r *http.Request, v any) error {
	return decoder.Decode(v, r.URL.Query())
}

// Check validates v, returning a message per failing field.
func Check(v any) (map[string]string, bool) {
	messages := map[string]string{}
	err := Validate.Struct(v)
	if err == nil {
		return messages, true
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		messages["_"] = err.Error()
		return messages, false
	}
	for _, fe := range errs {
		messages[fe.Field()] = fieldMessage(fe)
	}
	return messages, len(messages) == 0
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "eqfield":
		return fe.Field() + " must match " + fe.Param()
	case "numeric", "number":
		return fe.Field() + " must be a number"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
// It keeps redirects from leaving the application.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

// Next picks the redirect target from the "next" form field or query parameter.
func Next(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	return SafeNext(next, fallback)
}
