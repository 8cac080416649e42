// internal/app/system/inputval/inputval.go
//
// Package inputval validates request input before it reaches the stores.
// Rules are declared on struct fields with a `validate` tag and a human
// `label` tag used in error messages:
//
//	type createUserInput struct {
//		FullName string `validate:"required,max=100" label:"Full name"`
//		Email    string `validate:"required,email" label:"Email address"`
//	}
//
// Supported rules: required, max=N, email, objectid.
package inputval

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// FieldError is a single validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures in field declaration order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "" when valid.
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every error message with "; ".
func (r *Result) All() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// Fields returns the failures keyed by struct field name.
func (r *Result) Fields() map[string]string {
	if len(r.Errors) == 0 {
		return nil
	}
	m := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, taken := m[e.Field]; !taken {
			m[e.Field] = e.Message
		}
	}
	return m
}

// Validate checks every tagged string field of the struct. Evaluation stops
// at the first failing rule per field; untagged and non-string fields are
// skipped.
func Validate(input any) *Result {
	res := &Result{}

	v := reflect.ValueOf(input)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return res
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" || f.Type.Kind() != reflect.String {
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}
		value := v.Field(i).String()

		for _, rule := range strings.Split(tag, ",") {
			if msg := check(rule, value, label); msg != "" {
				res.Errors = append(res.Errors, FieldError{Field: f.Name, Message: msg})
				break
			}
		}
	}
	return res
}

func check(rule, value, label string) string {
	switch {
	case rule == "required":
		if strings.TrimSpace(value) == "" {
			return label + " is required."
		}
	case strings.HasPrefix(rule, "max="):
		n, err := strconv.Atoi(rule[len("max="):])
		if err != nil {
			return ""
		}
		if len([]rune(value)) > n {
			return fmt.Sprintf("%s must be at most %d characters.", label, n)
		}
	case rule == "email":
		if value != "" && !IsValidEmail(value) {
			return "A valid email address is required."
		}
	case rule == "objectid":
		if value != "" && !IsValidObjectID(value) {
			return label + " must be a valid id."
		}
	}
	return ""
}

// IsValidEmail reports whether s looks like a deliverable address. Single
// label domains are accepted so dev and test environments can use hosts
// like "localhost".
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	local, domain := s[:at], s[at+1:]

	if local == "" || strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.Contains(local, "..") {
		return false
	}
	for _, r := range local {
		if !isLocalChar(r) {
			return false
		}
	}

	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	for _, lbl := range strings.Split(domain, ".") {
		if lbl == "" || strings.HasPrefix(lbl, "-") || strings.HasSuffix(lbl, "-") {
			return false
		}
		for _, r := range lbl {
			if !isDomainChar(r) {
				return false
			}
		}
	}
	return true
}

func isLocalChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '%', r == '+', r == '-':
		return true
	}
	return false
}

func isDomainChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		return true
	}
	return false
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 24 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
