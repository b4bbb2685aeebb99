package sql

import (
	"regexp"
)

// Literal patterns replaced by DefaultQuerySanitizer.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	// Example matches: 'hello', 'it\'s', 'foo''bar'
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// hexLiteralRegex matches hex literals.
	// Example matches: 0xDEADBEEF, 0xFF, 0x1a2b
	hexLiteralRegex = regexp.MustCompile(`\b0[xX][0-9a-fA-F]+\b`)

	// numericLiteralRegex matches numeric literals (integers and floats) that
	// are not positional placeholders such as $1.
	// Example matches: 123, 45.67, 0.5
	numericLiteralRegex = regexp.MustCompile(`(^|[^$\w.])\d+(?:\.\d+)?\b`)
)

// DefaultQuerySanitizer replaces literal values with placeholders so that
// values inlined into SQL text never reach the event stream. Bound
// parameters are unaffected; they are recorded as db.params.* fields.
//
// What it sanitizes:
//   - String literals: 'john' → '?'
//   - Hex literals: 0xDEADBEEF → ?
//   - Numeric literals: 123, 45.67 → ?
//
// Placeholders such as $1 are kept.
//
// Example:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// returns "SELECT * FROM users WHERE id = ?"
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE name = 'john' AND id = $1")
//	// returns "SELECT * FROM users WHERE name = '?' AND id = $1"
//
// Note: This is a simple regex-based implementation. For production use
// with complex queries, consider using a proper SQL parser.
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = hexLiteralRegex.ReplaceAllString(query, "?")
	query = numericLiteralRegex.ReplaceAllString(query, "${1}?")
	return query
}
