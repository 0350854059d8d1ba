package utils

import (
	"fmt"
	"strings"
)

// EnumValidator accepts only the listed values.
func EnumValidator(allowed ...string) func(string) error {
	set := map[string]struct{}{}
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(s string) error {
		if _, ok := set[s]; ok {
			return nil
		}
		return fmt.Errorf("validation failed: %q is not one of %s", s, strings.Join(allowed, ", "))
	}
}

// SHA256Hex accepts a lowercase hex SHA-256 digest.
func SHA256Hex(s string) error {
	if len(s) != 64 {
		return fmt.Errorf("validation failed: content hash must be 64 hex characters, got %d", len(s))
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return fmt.Errorf("validation failed: content hash has non-hex character %q", r)
		}
	}
	return nil
}
