package dataspec

import "regexp"

// Aliases are the caller-chosen names keying every map inside a spec. They
// become externally visible column and result names, so the charset is kept
// deliberately narrow: 1-50 characters of lowercase letters, digits and
// underscores, starting with a letter and not ending with an underscore.
var aliasPattern = regexp.MustCompile(`^[a-z]([a-z0-9_]{0,48}[a-z0-9])?$`)

// ValidAlias reports whether alias satisfies the alias naming rule.
func ValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}

const invalidAliasMessage = "Invalid alias. Must be 1-50 characters of [a-z0-9_], start with a letter and not end with an underscore."

// validateMetadataValue checks that a metadata value is a string or numeric
// scalar. Nested structures and other types are rejected.
func validateMetadataValue(v any) bool {
	switch v.(type) {
	case string, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
