package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body, rejecting unknown fields and trailing data.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON in request body")
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON in request body")
	}
	return nil
}

// validEmail trims the address and requires a bare addr-spec.
func validEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", errors.New("email is not valid")
	}
	return email, nil
}

func validPassword(pw string, min int) error {
	if utf8.RuneCountInString(pw) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	return nil
}

func requirePassword(pw string) error {
	if pw == "" {
		return errors.New("password is required")
	}
	return nil
}

func validLength(field, v string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < min || n > max {
		if min == 0 {
			return fmt.Errorf("%s must be at most %d characters", field, max)
		}
		return fmt.Errorf("%s must be %d to %d characters", field, min, max)
	}
	return nil
}

func validName(field, v string) error { return validLength(field, v, 2, 50) }

func validRole(raw string) (domain.Role, error) {
	role, err := domain.ParseRole(raw)
	if err != nil {
		return "", errors.New("role must be one of customer, manager, admin")
	}
	return role, nil
}

func validTenantID(id *int64) error {
	if id != nil && *id <= 0 {
		return errors.New("tenantId must be a positive integer")
	}
	return nil
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
