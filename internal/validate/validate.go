// Package validate normalizes and validates the two kinds of caller input:
// article identifiers and comment payloads. It has no side effects and no
// dependency on storage.
package validate

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidIdentifier reports a bad category or article id.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidInput reports a bad comment field. Concrete failures are
	// *FieldError values wrapping this sentinel.
	ErrInvalidInput = errors.New("invalid input")
)

// FieldError names the offending comment field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Fields is a sanitized comment payload, safe to hand to the store.
type Fields struct {
	Name  string
	Email string
	Body  string
}

type commentInput struct {
	Name  string `validate:"required,max=100"`
	Email string `validate:"required,email"`
	Body  string `validate:"required,max=2000"`
}

var fieldRules = validator.New()

var fieldReasons = map[string]map[string]string{
	"Name": {
		"required": "must not be empty",
		"max":      "must be at most 100 characters",
	},
	"Email": {
		"required": "must not be empty",
		"email":    "must be a valid email address",
	},
	"Body": {
		"required": "must not be empty",
		"max":      "must be at most 2000 characters",
	},
}

// Identifier checks category against the allow-list and reduces articleID to
// its safe characters (alphanumeric, hyphen, underscore). Both results are
// usable directly as path segments of the durable artifact.
func Identifier(category, articleID string, allowed []string) (string, string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	ok := false
	for _, a := range allowed {
		if category == strings.ToLower(strings.TrimSpace(a)) {
			ok = true
			break
		}
	}
	if !ok {
		return "", "", fmt.Errorf("%w: unknown category %q", ErrInvalidIdentifier, category)
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(articleID) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id == "" {
		return "", "", fmt.Errorf("%w: article id has no safe characters", ErrInvalidIdentifier)
	}
	return category, id, nil
}

// CommentFields validates name, email and body against length and format
// policy, then HTML-escapes all three. Escaping happens last so the length
// limits apply to what the author actually typed.
func CommentFields(name, email, body string) (Fields, error) {
	in := commentInput{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Body:  strings.TrimSpace(body),
	}
	if err := fieldRules.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			ve := verrs[0]
			reason := fieldReasons[ve.Field()][ve.Tag()]
			if reason == "" {
				reason = "is invalid"
			}
			return Fields{}, &FieldError{Field: strings.ToLower(ve.Field()), Reason: reason}
		}
		return Fields{}, fmt.Errorf("validate comment fields: %w", err)
	}
	return Fields{
		Name:  html.EscapeString(in.Name),
		Email: html.EscapeString(in.Email),
		Body:  html.EscapeString(in.Body),
	}, nil
}
