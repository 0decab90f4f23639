package permkit

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	subjectPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+:[a-zA-Z0-9_@.-]+$`)
	scopePattern   = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	actionPattern  = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// ValidateSubjectIdentifier checks the 'type:id' subject format. The type
// part allows alphanumerics, underscore and hyphen; the id part additionally
// allows dots and '@'.
func ValidateSubjectIdentifier(identifier string) error {
	if identifier == "" {
		return &Error{Kind: KindValidation, Message: "subject identifier cannot be empty", Field: "subject"}
	}
	if len(identifier) < 3 {
		return &Error{Kind: KindValidation, Message: "subject identifier must be at least 3 characters long", Field: "subject"}
	}
	if !subjectPattern.MatchString(identifier) {
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("invalid subject identifier format: %q, expected 'type:id' (e.g. 'user:123', 'role:editor')", identifier),
			Field:   "subject",
		}
	}
	return nil
}

// ValidateScopeIdentifier checks scope format: lowercase letters, digits,
// dots, hyphens and underscores.
func ValidateScopeIdentifier(identifier string) error {
	if identifier == "" {
		return &Error{Kind: KindValidation, Message: "scope identifier cannot be empty", Field: "scope"}
	}
	if !scopePattern.MatchString(identifier) {
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("invalid scope identifier format: %q, scope must be lowercase letters, numbers, dots, hyphens and underscores", identifier),
			Field:   "scope",
		}
	}
	return nil
}

// ValidateAction checks action format: lowercase letters, digits, hyphens
// and underscores.
func ValidateAction(action string) error {
	if action == "" {
		return &Error{Kind: KindValidation, Message: "action cannot be empty", Field: "action"}
	}
	if !actionPattern.MatchString(action) {
		return &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("invalid action format: %q, action must be lowercase letters, numbers, hyphens and underscores", action),
			Field:   "action",
		}
	}
	return nil
}

// ValidateGrant validates the subject/scope/action triple of a grant or
// revoke request when enabled is true.
func ValidateGrant(subject, scope, action string, enabled bool) error {
	if !enabled {
		return nil
	}
	if err := ValidateSubjectIdentifier(subject); err != nil {
		return err
	}
	if err := ValidateScopeIdentifier(scope); err != nil {
		return err
	}
	return ValidateAction(action)
}

// ParseSubjectIdentifier splits a subject identifier into its type and id
// components.
func ParseSubjectIdentifier(identifier string) (subjectType, subjectID string, err error) {
	if err := ValidateSubjectIdentifier(identifier); err != nil {
		return "", "", err
	}
	parts := strings.SplitN(identifier, ":", 2)
	return parts[0], parts[1], nil
}
