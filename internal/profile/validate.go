package profile

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Kavirubc/cofound/pkg/models"
)

var githubUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)

// IsGitHubUsername reports whether s follows GitHub's username rules
func IsGitHubUsername(s string) bool {
	return githubUsernamePattern.MatchString(s)
}

// Validator checks profile setup payloads
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the profile-specific rules registered
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("linkedin", func(fl validator.FieldLevel) bool {
		return IsLinkedInURL(fl.Field().String())
	})
	_ = v.RegisterValidation("github", func(fl validator.FieldLevel) bool {
		return IsGitHubUsername(fl.Field().String())
	})

	// Report JSON field names, matching what the backend calls them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidationError maps field names to user-facing messages
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = e.Fields[name]
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// Setup validates a profile setup payload
func (v *Validator) Setup(setup *models.ProfileSetup) error {
	setup.FullName = strings.TrimSpace(setup.FullName)
	setup.LinkedInURL = strings.TrimSpace(setup.LinkedInURL)
	setup.GitHubUsername = strings.TrimPrefix(strings.TrimSpace(setup.GitHubUsername), "@")

	err := v.validate.Struct(setup)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate profile: %w", err)
	}
	return newValidationError(verrs)
}

func newValidationError(verrs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Namespace keeps link indexes apart: ProfileSetup.links[1].url
		key := fe.Field()
		if ns := fe.Namespace(); strings.Contains(ns, "[") {
			key = ns[strings.Index(ns, ".")+1:]
		}

		switch fe.Tag() {
		case "required":
			fields[key] = fmt.Sprintf("%s is required", key)
		case "email":
			fields[key] = fmt.Sprintf("%s must be a valid email address", key)
		case "max":
			fields[key] = fmt.Sprintf("%s must be at most %s characters long", key, fe.Param())
		case "oneof":
			fields[key] = fmt.Sprintf("%s must be one of: %s", key, fe.Param())
		case "url":
			fields[key] = fmt.Sprintf("%s must be a valid URL", key)
		case "linkedin":
			fields[key] = ErrInvalidLinkedInURL.Error()
		case "github":
			fields[key] = fmt.Sprintf("%s is not a valid GitHub username", key)
		default:
			fields[key] = fmt.Sprintf("%s is invalid", key)
		}
	}
	return &ValidationError{Fields: fields}
}
