package utils

import "strings"

// QuoteIdentifier wraps every dot separated part of name in quote, handling
// nested identifiers.
//
// Examples:
//   - ("table", '"') -> "\"table\""
//   - ("ops.changes", '"') -> "\"ops\".\"changes\""
//   - ("db.table", '`') -> "`db`.`table`"
//   - ("`table`", '`') -> "`table`" (already quoted, not double-quoted)
//   - ("", '"') -> ""
func QuoteIdentifier(name string, quote byte) string {
	if name == "" {
		return ""
	}

	// a single quoted identifier may itself contain dots
	if IsQuoted(name, quote) {
		return name
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		if len(part) >= 2 && part[0] == quote && part[len(part)-1] == quote {
			continue
		}
		parts[i] = string(quote) + part + string(quote)
	}
	return strings.Join(parts, ".")
}

// IsQuoted checks if s is a single identifier wrapped in quote.
//
// Examples:
//   - ("`table`", '`') -> true
//   - ("table", '`') -> false
//   - ("`db`.`table`", '`') -> false (qualified name, not a single identifier)
func IsQuoted(s string, quote byte) bool {
	return len(s) >= 2 && s[0] == quote && s[len(s)-1] == quote &&
		!strings.Contains(s[1:len(s)-1], string(quote))
}

// StripQuotes removes every quote character from s.
//
// Examples:
//   - ("\"ops\".\"changes\"", '"') -> "ops.changes"
//   - ("table", '"') -> "table"
func StripQuotes(s string, quote byte) string {
	return strings.ReplaceAll(s, string(quote), "")
}
