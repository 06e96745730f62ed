package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches one {{...}} placeholder. The lazy interior
// keeps doubled braces from being swallowed into a single match.
var placeholderPattern = regexp.MustCompile(`\{\{.*?\}\}`)

// RenderTemplate replaces every {{key}} placeholder in template with the
// context value for the whitespace-trimmed key. Placeholders whose key is
// not in the context are left verbatim, braces included. Replacement
// values are never re-scanned for placeholders.
func RenderTemplate(template string, context map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := context[key]
		if !ok {
			return match
		}
		return stringify(value)
	})
}

// stringify renders a context value for substitution: strings verbatim,
// booleans as true/false, string slices comma-joined, everything else via
// its default formatting.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}
