package middleware

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	tenantPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	runIDPattern  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-[a-z_]+$`)
)

// ValidateTenantID accepts alphanumerics, dash and underscore, up to 64 chars.
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateRunID checks the <uuid>-<analysis> shape of run identifiers.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("invalid run ID format")
	}
	return nil
}

// ValidateObjectKey checks a dataset key in object storage.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("source must be a relative object key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected")
		}
	}
	switch strings.ToLower(path.Ext(key)) {
	case ".xlsx", ".xlsm", ".csv":
	default:
		return fmt.Errorf("source must be an .xlsx, .xlsm or .csv file")
	}
	if SanitizeString(key) != key {
		return fmt.Errorf("invalid characters in source")
	}
	return nil
}

// SanitizeString drops NUL and control characters except tab and newline.
func SanitizeString(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// ValidateLimit clamps a page size to 1..100, defaulting to 20.
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
