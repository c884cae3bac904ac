package mail

import (
	"regexp"
	"strings"
)

var (
	conditionalBlock = regexp.MustCompile(`(?s)\{\{#if\b[^}]*\}\}.*?\{\{/if\}\}`)
	strayMarker      = regexp.MustCompile(`\{\{#if\b[^}]*\}\}|\{\{/if\}\}`)
	placeholder      = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
)

// Render drops every {{#if x}}...{{/if}} block whole, then substitutes each
// {{key}} (inner spaces allowed) with vars[key] in a single pass. The
// condition is never evaluated. Unknown keys are left as written and
// substituted values are not scanned again.
func Render(text string, vars map[string]string) string {
	text = conditionalBlock.ReplaceAllString(text, "")
	text = strayMarker.ReplaceAllString(text, "")
	return placeholder.ReplaceAllStringFunc(text, func(tok string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}"))
		if v, ok := vars[name]; ok {
			return v
		}
		return tok
	})
}

// Placeholders lists the distinct {{name}} tokens of a template, in order of
// first appearance. Conditional markers are not placeholders.
func Placeholders(texts ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range texts {
		for _, m := range placeholder.FindAllStringSubmatch(t, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}
