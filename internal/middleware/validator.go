package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tenantPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	caseIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateCaseID accepts generated SAR-XXXXXXXX ids and caller-supplied ones
// of the same alphabet. Case ids end up in object keys and vector ids.
func ValidateCaseID(id string) error {
	if id == "" {
		return fmt.Errorf("case ID cannot be empty")
	}
	if !caseIDPattern.MatchString(id) {
		return fmt.Errorf("invalid case ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}
