package templates

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	// %i18n("key")% or %i18n('key')%
	i18nToken = regexp.MustCompile(`%i18n\(["']([^%]*)["']\)%`)
	// %attributeName%
	attrToken = regexp.MustCompile(`%([^%]*)%`)
)

// ExpandI18n replaces every %i18n("key")% token in src with lookup(key).
// A nil lookup leaves the key in place of the token.
func ExpandI18n(src string, lookup func(key string) string) string {
	return i18nToken.ReplaceAllStringFunc(src, func(tok string) string {
		key := i18nToken.FindStringSubmatch(tok)[1]
		if lookup == nil {
			return key
		}
		return lookup(key)
	})
}

// Substitute replaces every %name% token in src with the formatted value of
// attrs[name]. Missing attributes become the empty string. Values are not
// escaped; pass the result through Sanitize when attributes are untrusted.
func Substitute(src string, attrs map[string]any) string {
	return attrToken.ReplaceAllStringFunc(src, func(tok string) string {
		name := tok[1 : len(tok)-1]
		return FormatValue(attrs[name])
	})
}

// Tokens returns the attribute names referenced by src, in order of first
// appearance.
func Tokens(src string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range attrToken.FindAllStringSubmatch(src, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// FormatValue renders an attribute value for a popup body.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
