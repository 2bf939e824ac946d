package prompting

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Fill substitutes {name} placeholders with values from ctx. Placeholders whose value is missing
// or blank are left as written. Substituted text is not scanned again.
func Fill(template string, ctx Context) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := ctx.Text(key); ok {
			return value
		}
		return match
	})
}
